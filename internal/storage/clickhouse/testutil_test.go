package clickhouse_test

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-token-launcher/internal/storage/clickhouse"
	"solana-token-launcher/internal/storage/migrations"
)

// clickhouseDSNEnv points the tests at an existing server instead of a container.
const clickhouseDSNEnv = "LAUNCHER_TEST_CLICKHOUSE_DSN"

// openAttemptLogDB returns a migrated connection to a fresh "launcher_test" database.
func openAttemptLogDB(t *testing.T) *clickhouse.Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	dsn := os.Getenv(clickhouseDSNEnv)
	if dsn == "" {
		dsn = startClickhouse(t, ctx)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Exec(context.Background(), "TRUNCATE TABLE IF EXISTS listing_attempts")
		conn.Close()
	})
	return conn
}

func startClickhouse(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{clickhouse.DefaultPort + "/tcp"},
			Env:          map[string]string{"CLICKHOUSE_SKIP_USER_SETUP": "1"},
			WaitingFor: wait.ForListeningPort(clickhouse.DefaultPort + "/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start clickhouse container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, clickhouse.DefaultPort)
	require.NoError(t, err)

	return "clickhouse://default@" + net.JoinHostPort(host, port.Port()) + "/launcher_test"
}

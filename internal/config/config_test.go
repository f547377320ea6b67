package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launcher/internal/provider"
)

const sampleYAML = `
log:
  format: json
  level: debug
ledger:
  rpc_endpoint: ${TEST_RPC_ENDPOINT}
  ws_endpoint: ${TEST_WS_ENDPOINT:-wss://api.mainnet-beta.solana.com}
  retries: 0
chain:
  attempt_timeout: 5s
storage:
  driver: postgres
  dsn: postgres://launcher@localhost/launcher
platforms:
  - name: pumpfun
    providers:
      - id: pumpportal
        kind: http
        endpoint: https://pumpportal.example/api/list
        credential: ${TEST_PUMP_KEY}
        auth_header: x-api-key
        timeout: 2s
        idempotent: false
      - id: pumpfun-probe
        kind: probe
        endpoint: https://frontend.pump.example/coins/{mint}
  - name: axiom
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("TEST_PUMP_KEY", "secret-key")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://rpc.example", cfg.Ledger.RPCEndpoint)
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", cfg.Ledger.WSEndpoint)
	require.NotNil(t, cfg.Ledger.Retries)
	assert.Equal(t, 0, *cfg.Ledger.Retries)
	assert.Equal(t, 5*time.Second, cfg.Chain.AttemptTimeout)
	assert.Equal(t, uint8(DefaultDecimals), cfg.Ledger.Decimals)
	assert.Equal(t, uint64(DefaultInitialSupply), cfg.Ledger.InitialSupply)
	assert.Equal(t, GuardLocal, cfg.Guard.Driver)

	require.Len(t, cfg.Platforms, 2)
	pump := cfg.Platforms[0]
	require.Len(t, pump.Providers, 2)
	assert.Equal(t, "pumpportal", pump.Providers[0].ID)
	assert.Equal(t, "secret-key", pump.Providers[0].Credential)
	assert.Equal(t, 2*time.Second, pump.Providers[0].Timeout)
	require.NotNil(t, pump.Providers[0].Idempotent)
	assert.False(t, *pump.Providers[0].Idempotent)
	assert.Empty(t, cfg.Platforms[1].Providers)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("ledger:\n  simulated: true\nplatforms:\n  - name: pumpfun\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.Storage.DSN)
	assert.Equal(t, DefaultAttemptTimeout, cfg.Chain.AttemptTimeout)
	assert.Equal(t, DefaultMintRetries, *cfg.Ledger.Retries)
	assert.Equal(t, DefaultGuardTTL, cfg.Guard.TTL)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  format: xml
storage:
  driver: mongo
guard:
  driver: redis
platforms:
  - name: pumpfun
    providers:
      - id: a
      - id: a
      - id: ""
  - name: pumpfun
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "log.format")
	assert.Contains(t, msg, "ledger.rpc_endpoint")
	assert.Contains(t, msg, "storage.driver")
	assert.Contains(t, msg, "guard.redis_addr")
	assert.Contains(t, msg, `provider "a" is listed twice`)
	assert.Contains(t, msg, "providers[2].id is required")
	assert.Contains(t, msg, `platform "pumpfun" is configured twice`)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	t.Setenv("TEST_EMPTY", "")

	assert.Equal(t, "value", ExpandEnv("${TEST_SET}"))
	assert.Equal(t, "fallback", ExpandEnv("${TEST_EMPTY:-fallback}"))
	assert.Equal(t, "", ExpandEnv("${TEST_UNSET_VARIABLE}"))
	assert.Equal(t, "cost $5", ExpandEnv("cost $5"))
}

func TestBuildRegistry(t *testing.T) {
	t.Setenv("TEST_RPC_ENDPOINT", "https://rpc.example")
	t.Setenv("TEST_PUMP_KEY", "")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	registry, err := cfg.BuildRegistry(provider.Deps{})
	require.NoError(t, err)
	assert.Equal(t, []string{"axiom", "pumpfun"}, registry.Platforms())

	chain, ok := registry.Chain("pumpfun")
	require.True(t, ok)
	require.Len(t, chain, 2)
	assert.Equal(t, "pumpportal", chain[0].ID())
	assert.False(t, chain[0].Idempotent())
	assert.Equal(t, "pumpfun-probe", chain[1].ID())

	empty, ok := registry.Chain("axiom")
	assert.True(t, ok)
	assert.Empty(t, empty)
	assert.False(t, cfg.NeedsRPC())
}

func TestBuildRegistry_OnchainRequiresRPC(t *testing.T) {
	cfg, err := Parse([]byte("platforms:\n  - name: solana\n    providers:\n      - id: chain\n        kind: onchain\n"))
	require.NoError(t, err)
	assert.True(t, cfg.NeedsRPC())

	_, err = cfg.BuildRegistry(provider.Deps{})
	assert.ErrorIs(t, err, provider.ErrMissingRPC)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nTEST_ENV_A=one\nexport TEST_ENV_B=\"two words\"\nTEST_ENV_PRESET=file\nmalformed\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_ENV_PRESET", "process")
	t.Setenv("TEST_ENV_A", "")
	os.Unsetenv("TEST_ENV_A")
	t.Setenv("TEST_ENV_B", "")
	os.Unsetenv("TEST_ENV_B")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "one", os.Getenv("TEST_ENV_A"))
	assert.Equal(t, "two words", os.Getenv("TEST_ENV_B"))
	assert.Equal(t, "process", os.Getenv("TEST_ENV_PRESET"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing")))
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "launcher.example.yaml"))
	require.NoError(t, err)
	cfg.Ledger.Simulated = true
	assert.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Platforms)
}

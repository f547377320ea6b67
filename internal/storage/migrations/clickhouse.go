package migrations

import (
	"context"
	"fmt"
	"regexp"

	chstore "solana-token-launcher/internal/storage/clickhouse"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the DSN's database if needed, applies pending migrations
// to it and returns the connection for reuse.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	ep, err := chstore.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if !identifier.MatchString(ep.Database) {
		return nil, fmt.Errorf("clickhouse dsn must name a database, got %q", ep.Database)
	}

	if err := createDatabase(ctx, ep); err != nil {
		return nil, err
	}

	conn, err := chstore.Connect(ctx, ep)
	if err != nil {
		return nil, err
	}
	if err := applyClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, ep chstore.Endpoint) error {
	admin := ep
	admin.Database = ""
	conn, err := chstore.Connect(ctx, admin)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+ep.Database+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", ep.Database, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) error {
	tracking := `CREATE TABLE IF NOT EXISTS ` + trackingTable + ` (
		name       String,
		applied_at DateTime DEFAULT now()
	) ENGINE = MergeTree ORDER BY name`
	if err := conn.Exec(ctx, tracking); err != nil {
		return fmt.Errorf("create %s: %w", trackingTable, err)
	}

	pending, err := Load(Clickhouse)
	if err != nil {
		return err
	}

	for _, m := range pending {
		var applied uint64
		if err := conn.QueryRow(ctx, "SELECT count() FROM "+trackingTable+" WHERE name = ?", m.Name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}
		if applied > 0 {
			continue
		}

		// The native protocol takes one statement per Exec.
		for _, stmt := range m.Statements() {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		if err := conn.Exec(ctx, "INSERT INTO "+trackingTable+" (name) VALUES (?)", m.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
	}
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-launcher/internal/storage/postgres"
)

// pgAdvisoryLock serializes concurrent migrators on one database.
const pgAdvisoryLock = 727_001

// RunPostgresMigrations applies pending migrations, each in its own transaction.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, pgAdvisoryLock); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, pgAdvisoryLock)

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+trackingTable+` (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create %s: %w", trackingTable, err)
	}

	pending, err := Load(Postgres)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO `+trackingTable+` (name) VALUES ($1) ON CONFLICT DO NOTHING`, m.Name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			_, err = tx.Exec(ctx, m.SQL)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}

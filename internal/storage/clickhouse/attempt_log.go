package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-launcher/internal/storage"
)

// AttemptLog implements storage.AttemptLog using ClickHouse.
type AttemptLog struct {
	conn *Conn
}

// NewAttemptLog creates a new AttemptLog.
func NewAttemptLog(conn *Conn) *AttemptLog {
	return &AttemptLog{conn: conn}
}

// Compile-time interface check.
var _ storage.AttemptLog = (*AttemptLog)(nil)

// Append inserts entries in one batch.
func (l *AttemptLog) Append(ctx context.Context, entries []storage.AttemptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.TokenID == "" || e.Platform == "" || e.ProviderID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := l.conn.PrepareBatch(ctx, `
		INSERT INTO listing_attempts (
			token_id, platform, provider_id, mint_address,
			started_at, duration_ms, outcome, error_kind, error_detail
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.TokenID, e.Platform, e.ProviderID, e.MintAddress,
			time.UnixMilli(e.StartedAt).UTC(), e.DurationMs,
			string(e.Outcome), e.ErrorKind, e.ErrorDetail,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ProviderStats aggregates attempts of every provider on a platform.
func (l *AttemptLog) ProviderStats(ctx context.Context, platform string) ([]storage.ProviderStats, error) {
	query := `
		SELECT
			provider_id,
			count() AS attempts,
			countIf(outcome = 'success') AS successes,
			countIf(outcome = 'timeout') AS timeouts,
			avg(duration_ms) AS avg_duration_ms
		FROM listing_attempts
		WHERE platform = ? AND outcome != 'skipped'
		GROUP BY provider_id
		ORDER BY provider_id
	`

	rows, err := l.conn.Query(ctx, query, platform)
	if err != nil {
		return nil, fmt.Errorf("query provider stats: %w", err)
	}
	defer rows.Close()

	var out []storage.ProviderStats
	for rows.Next() {
		var providerID string
		var attempts, successes, timeouts uint64
		var avgMs float64
		if err := rows.Scan(&providerID, &attempts, &successes, &timeouts, &avgMs); err != nil {
			return nil, fmt.Errorf("scan provider stats: %w", err)
		}
		out = append(out, storage.ProviderStats{
			Platform:      platform,
			ProviderID:    providerID,
			Attempts:      int64(attempts),
			Successes:     int64(successes),
			Timeouts:      int64(timeouts),
			AvgDurationMs: avgMs,
		})
	}
	return out, rows.Err()
}

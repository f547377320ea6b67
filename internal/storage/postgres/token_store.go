package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool

	// OnConflict, if set, is called for every lost optimistic-concurrency race.
	OnConflict func(id string)
}

// NewTokenStore creates a new PostgreSQL token store.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Create inserts a new record. Returns ErrDuplicateKey if the id or mint exists.
func (s *TokenStore) Create(ctx context.Context, rec *domain.TokenRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	stored := rec.Clone()
	stored.Version = 1
	data, err := storage.EncodeRecord(stored)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tokens (id, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.pool.Exec(ctx, query, rec.ID, data, stored.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return mapError("insert token", err)
	}
	rec.Version = 1
	return nil
}

// Get retrieves a record by id.
func (s *TokenStore) Get(ctx context.Context, id string) (*domain.TokenRecord, error) {
	query := `SELECT document, version FROM tokens WHERE id = $1`

	var doc []byte
	var version int64
	if err := s.pool.QueryRow(ctx, query, id).Scan(&doc, &version); err != nil {
		return nil, mapError("get token", err)
	}

	rec, err := storage.DecodeRecord(id, doc)
	if err != nil {
		return nil, err
	}
	rec.Version = version
	return rec, nil
}

// UpdateAtomic applies fn with optimistic concurrency on the version column.
func (s *TokenStore) UpdateAtomic(ctx context.Context, id string, fn storage.Mutator) (*domain.TokenRecord, error) {
	return storage.CAS{
		Load:       s.Get,
		Swap:       s.swap,
		OnConflict: s.OnConflict,
	}.Update(ctx, id, fn)
}

func (s *TokenStore) swap(ctx context.Context, next *domain.TokenRecord, expected int64) error {
	data, err := storage.EncodeRecord(next)
	if err != nil {
		return err
	}

	query := `
		UPDATE tokens SET document = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	tag, err := s.pool.Exec(ctx, query, data, next.Version, next.UpdatedAt, next.ID, expected)
	if err != nil {
		return mapError("update token", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE id = $1)`, next.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

// List returns all decodable records ordered by created_at.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TokenRecord, error) {
	query := `SELECT id, document, version FROM tokens ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var out []*domain.TokenRecord
	for rows.Next() {
		var id string
		var doc []byte
		var version int64
		if err := rows.Scan(&id, &doc, &version); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		rec, err := storage.DecodeRecord(id, doc)
		if err != nil {
			slog.Default().Warn("skipping corrupt token record", "component", "storage", "id", id, "error", err)
			continue
		}
		rec.Version = version
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record.
func (s *TokenStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.TokenStore = (*TokenStore)(nil)

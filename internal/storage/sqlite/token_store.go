package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/storage"
)

// TokenStore implements storage.TokenStore using SQLite.
type TokenStore struct {
	db *DB

	// OnConflict, if set, is called for every lost optimistic-concurrency race.
	OnConflict func(id string)
}

// NewTokenStore creates a new SQLite token store.
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create inserts a new record. Returns ErrDuplicateKey if the id exists.
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

	const query = `
		INSERT INTO tokens (id, document, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, rec.ID, string(data), stored.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	rec.Version = 1
	return nil
}

// Get retrieves a record by id.
func (s *TokenStore) Get(ctx context.Context, id string) (*domain.TokenRecord, error) {
	const query = `SELECT document, version FROM tokens WHERE id = ?`

	var doc string
	var version int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	rec, err := storage.DecodeRecord(id, []byte(doc))
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

	const query = `
		UPDATE tokens SET document = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query, string(data), next.Version, next.UpdatedAt, next.ID, expected)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM tokens WHERE id = ?`, next.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	return storage.ErrConflict
}

// List returns all decodable records ordered by created_at.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TokenRecord, error) {
	const query = `SELECT id, document, version FROM tokens ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var out []*domain.TokenRecord
	for rows.Next() {
		var id, doc string
		var version int64
		if err := rows.Scan(&id, &doc, &version); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		rec, err := storage.DecodeRecord(id, []byte(doc))
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.TokenStore = (*TokenStore)(nil)

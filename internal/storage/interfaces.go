package storage

import (
	"context"

	"solana-token-launcher/internal/domain"
)

// Mutator observes the current record and returns the record to write.
// Returning nil writes nothing; returning an error aborts the update with that error.
// The mutator may run more than once and must not have side effects.
type Mutator func(current *domain.TokenRecord) (*domain.TokenRecord, error)

// TokenStore is the durable mapping from token id to TokenRecord.
type TokenStore interface {
	// Create inserts a new record with Version 1. Returns ErrDuplicateKey if the id exists.
	Create(ctx context.Context, rec *domain.TokenRecord) error

	// Get retrieves a record. Returns ErrNotFound or *CorruptStateError.
	Get(ctx context.Context, id string) (*domain.TokenRecord, error)

	// UpdateAtomic applies fn under optimistic concurrency, re-reading and re-running fn
	// on conflict. Returns the stored record.
	UpdateAtomic(ctx context.Context, id string, fn Mutator) (*domain.TokenRecord, error)

	// List returns every decodable record ordered by CreatedAt. Corrupt records are skipped.
	List(ctx context.Context) ([]*domain.TokenRecord, error)

	// Delete removes a record. Returns ErrNotFound if the id does not exist.
	Delete(ctx context.Context, id string) error
}

// AttemptEntry is one provider attempt with the token it was made for.
type AttemptEntry struct {
	TokenID     string
	Platform    string
	MintAddress string
	domain.AttemptRecord
}

// ProviderStats aggregates attempts of one provider on one platform.
type ProviderStats struct {
	Platform      string
	ProviderID    string
	Attempts      int64
	Successes     int64
	Timeouts      int64
	AvgDurationMs float64
}

// AttemptLog is an append-only audit log of provider attempts across all tokens,
// used to spot providers worth demoting in chain order.
type AttemptLog interface {
	// Append inserts entries. Entries are never updated.
	Append(ctx context.Context, entries []AttemptEntry) error

	// ProviderStats returns per-provider aggregates for a platform, ordered by provider id.
	ProviderStats(ctx context.Context, platform string) ([]ProviderStats, error)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-launcher/internal/domain"
)

// MaxUpdateRetries bounds conflict retries in UpdateAtomic.
const MaxUpdateRetries = 8

// CAS implements UpdateAtomic for backends with a conditional write on Version.
type CAS struct {
	// Load reads the current record.
	Load func(ctx context.Context, id string) (*domain.TokenRecord, error)

	// Swap writes next only if the stored version still equals expected.
	// It returns ErrConflict when the condition fails and ErrNotFound if the record is gone.
	Swap func(ctx context.Context, next *domain.TokenRecord, expected int64) error

	// OnConflict is called for every lost race, if set.
	OnConflict func(id string)
}

// Update runs the read-mutate-write loop.
func (c CAS) Update(ctx context.Context, id string, fn Mutator) (*domain.TokenRecord, error) {
	backoff := time.Millisecond

	for attempt := 0; attempt <= MaxUpdateRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 50*time.Millisecond {
				backoff *= 2
			}
		}

		current, err := c.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return nil, err
		}
		if next == nil {
			return current, nil
		}

		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1

		err = c.Swap(ctx, next, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		if c.OnConflict != nil {
			c.OnConflict(id)
		}
	}

	return nil, fmt.Errorf("token %s: %w after %d retries", id, ErrConflict, MaxUpdateRetries)
}

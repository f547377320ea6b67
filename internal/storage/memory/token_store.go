package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
// Records are kept as encoded documents, so callers never share memory with the store.
type TokenStore struct {
	mu      sync.RWMutex
	docs    map[string][]byte // keyed by token id
	version map[string]int64

	// OnConflict, if set, is called for every lost optimistic-concurrency race.
	OnConflict func(id string)
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		docs:    make(map[string][]byte),
		version: make(map[string]int64),
	}
}

// Create inserts a new record. Returns ErrDuplicateKey if the id exists.
func (s *TokenStore) Create(_ context.Context, rec *domain.TokenRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	stored := rec.Clone()
	stored.Version = 1
	data, err := storage.EncodeRecord(stored)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.docs[rec.ID] = data
	s.version[rec.ID] = 1
	rec.Version = 1
	return nil
}

// Get retrieves a record by id.
func (s *TokenStore) Get(_ context.Context, id string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	data, exists := s.docs[id]
	version := s.version[id]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	rec, err := storage.DecodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	rec.Version = version
	return rec, nil
}

// UpdateAtomic applies fn with optimistic concurrency on Version.
func (s *TokenStore) UpdateAtomic(ctx context.Context, id string, fn storage.Mutator) (*domain.TokenRecord, error) {
	return storage.CAS{
		Load:       s.Get,
		Swap:       s.swap,
		OnConflict: s.OnConflict,
	}.Update(ctx, id, fn)
}

func (s *TokenStore) swap(_ context.Context, next *domain.TokenRecord, expected int64) error {
	data, err := storage.EncodeRecord(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.version[next.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if current != expected {
		return storage.ErrConflict
	}
	s.docs[next.ID] = data
	s.version[next.ID] = next.Version
	return nil
}

// List returns all decodable records ordered by CreatedAt, then id.
func (s *TokenStore) List(_ context.Context) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TokenRecord, 0, len(s.docs))
	for id, data := range s.docs {
		rec, err := storage.DecodeRecord(id, data)
		if err != nil {
			slog.Default().Warn("skipping corrupt token record", "component", "storage", "id", id, "error", err)
			continue
		}
		rec.Version = s.version[id]
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a record.
func (s *TokenStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.docs, id)
	delete(s.version, id)
	return nil
}

// PutRaw stores a document as-is. Used to exercise corrupt-state handling.
func (s *TokenStore) PutRaw(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = append([]byte(nil), data...)
	s.version[id]++
}

var _ storage.TokenStore = (*TokenStore)(nil)

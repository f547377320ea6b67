package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/storage"
)

// AttemptLog is an in-memory implementation of storage.AttemptLog.
type AttemptLog struct {
	mu      sync.RWMutex
	entries []storage.AttemptEntry
}

// NewAttemptLog creates a new in-memory attempt log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

// Append adds entries.
func (l *AttemptLog) Append(_ context.Context, entries []storage.AttemptEntry) error {
	for _, e := range entries {
		if e.TokenID == "" || e.Platform == "" || e.ProviderID == "" {
			return storage.ErrInvalidInput
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	return nil
}

// ProviderStats aggregates attempts for a platform.
func (l *AttemptLog) ProviderStats(_ context.Context, platform string) ([]storage.ProviderStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byProvider := make(map[string]*storage.ProviderStats)
	totalMs := make(map[string]int64)
	for _, e := range l.entries {
		if e.Platform != platform || e.Outcome == domain.OutcomeSkipped {
			continue
		}
		st, ok := byProvider[e.ProviderID]
		if !ok {
			st = &storage.ProviderStats{Platform: platform, ProviderID: e.ProviderID}
			byProvider[e.ProviderID] = st
		}
		st.Attempts++
		switch e.Outcome {
		case domain.OutcomeSuccess:
			st.Successes++
		case domain.OutcomeTimeout:
			st.Timeouts++
		}
		totalMs[e.ProviderID] += e.DurationMs
	}

	out := make([]storage.ProviderStats, 0, len(byProvider))
	for id, st := range byProvider {
		st.AvgDurationMs = float64(totalMs[id]) / float64(st.Attempts)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

// Entries returns a copy of all entries in insertion order.
func (l *AttemptLog) Entries() []storage.AttemptEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]storage.AttemptEntry(nil), l.entries...)
}

var _ storage.AttemptLog = (*AttemptLog)(nil)

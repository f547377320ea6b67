package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Domain errors.
var (
	// ErrMintAlreadySet is returned when a mint address would be overwritten.
	ErrMintAlreadySet = errors.New("mint address already set")

	// ErrInvalidTransition is returned when a platform state would regress.
	ErrInvalidTransition = errors.New("invalid platform state transition")
)

// PlatformState is the per (token, platform) listing state.
type PlatformState string

const (
	PlatformStateNotAttempted PlatformState = "NOT_ATTEMPTED"
	PlatformStateInProgress   PlatformState = "IN_PROGRESS"
	PlatformStateSucceeded    PlatformState = "SUCCEEDED"
	PlatformStateFailed       PlatformState = "FAILED"
	PlatformStateUnsupported  PlatformState = "UNSUPPORTED"
)

// IsTerminal reports whether the state ends a chain run.
func (s PlatformState) IsTerminal() bool {
	switch s {
	case PlatformStateSucceeded, PlatformStateFailed, PlatformStateUnsupported:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether an explicit selective retry may re-enter the platform.
func (s PlatformState) IsRetryable() bool {
	return s == PlatformStateFailed || s == PlatformStateUnsupported
}

// CanTransition reports whether moving from s to next is allowed.
// States move forward only. The one re-entry is FAILED/UNSUPPORTED -> IN_PROGRESS,
// which only an explicit retry performs.
func (s PlatformState) CanTransition(next PlatformState) bool {
	if s == next {
		return !s.IsTerminal()
	}
	switch s {
	case PlatformStateNotAttempted:
		return next == PlatformStateInProgress || next == PlatformStateUnsupported
	case PlatformStateInProgress:
		return next.IsTerminal()
	case PlatformStateFailed, PlatformStateUnsupported:
		return next == PlatformStateInProgress
	default:
		return false
	}
}

// AttemptOutcome classifies a single provider attempt.
type AttemptOutcome string

const (
	OutcomeSuccess        AttemptOutcome = "success"
	OutcomeTimeout        AttemptOutcome = "timeout"
	OutcomeTransportError AttemptOutcome = "transport_error"
	OutcomeRejected       AttemptOutcome = "rejected"
	OutcomeUnsupported    AttemptOutcome = "unsupported"
	OutcomeCancelled      AttemptOutcome = "cancelled"
	OutcomeSkipped        AttemptOutcome = "skipped" // provider not invoked
)

// AttemptRecord is the audit entry for one provider invocation.
type AttemptRecord struct {
	ProviderID  string         `json:"provider_id"`
	StartedAt   int64          `json:"started_at"` // Unix timestamp in milliseconds
	DurationMs  int64          `json:"duration_ms"`
	Outcome     AttemptOutcome `json:"outcome"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// PlatformStatus is the per (token, platform) outcome.
type PlatformStatus struct {
	State             PlatformState   `json:"state"`
	SucceededProvider *string         `json:"succeeded_provider,omitempty"`
	ListingReference  *string         `json:"listing_reference,omitempty"`
	Attempts          []AttemptRecord `json:"attempts"`
}

// Transition moves the status to next, rejecting regressions.
func (p *PlatformStatus) Transition(next PlatformState) error {
	if !p.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, next)
	}
	p.State = next
	return nil
}

// AppendAttempt appends an attempt. Attempts are never reordered or removed.
func (p *PlatformStatus) AppendAttempt(a AttemptRecord) {
	p.Attempts = append(p.Attempts, a)
}

// Clone returns a deep copy of the status.
func (p *PlatformStatus) Clone() *PlatformStatus {
	if p == nil {
		return nil
	}
	c := *p
	if p.SucceededProvider != nil {
		v := *p.SucceededProvider
		c.SucceededProvider = &v
	}
	if p.ListingReference != nil {
		v := *p.ListingReference
		c.ListingReference = &v
	}
	c.Attempts = make([]AttemptRecord, len(p.Attempts))
	copy(c.Attempts, p.Attempts)
	return &c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

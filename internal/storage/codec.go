package storage

import (
	"encoding/json"
	"fmt"

	"solana-token-launcher/internal/domain"
)

// EncodeRecord serializes a record as its persisted JSON document.
func EncodeRecord(rec *domain.TokenRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode token %s: %w", rec.ID, err)
	}
	return data, nil
}

// DecodeRecord parses a persisted document. Any failure is a *CorruptStateError.
func DecodeRecord(id string, data []byte) (*domain.TokenRecord, error) {
	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &CorruptStateError{ID: id, Err: err}
	}
	if rec.ID != id {
		return nil, &CorruptStateError{ID: id, Err: fmt.Errorf("document id %q does not match key", rec.ID)}
	}
	if !validLaunchState(rec.LaunchState) {
		return nil, &CorruptStateError{ID: id, Err: fmt.Errorf("unknown launch state %q", rec.LaunchState)}
	}
	for name, ps := range rec.PlatformStatuses {
		if ps == nil || !validPlatformState(ps.State) {
			return nil, &CorruptStateError{ID: id, Err: fmt.Errorf("platform %s has invalid status", name)}
		}
	}
	if rec.PlatformStatuses == nil {
		rec.PlatformStatuses = make(map[string]*domain.PlatformStatus)
	}
	return &rec, nil
}

func validLaunchState(s domain.LaunchState) bool {
	switch s {
	case domain.LaunchStateCreated, domain.LaunchStateMinting, domain.LaunchStateMintFailed,
		domain.LaunchStateMinted, domain.LaunchStateListing, domain.LaunchStateCompleted:
		return true
	}
	return false
}

func validPlatformState(s domain.PlatformState) bool {
	switch s {
	case domain.PlatformStateNotAttempted, domain.PlatformStateInProgress, domain.PlatformStateSucceeded,
		domain.PlatformStateFailed, domain.PlatformStateUnsupported:
		return true
	}
	return false
}

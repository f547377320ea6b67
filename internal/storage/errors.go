package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when creating a record whose id already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a conditional write lost to a concurrent writer
	// more than MaxUpdateRetries times.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrCorruptState is returned when a stored record cannot be decoded.
	ErrCorruptState = errors.New("corrupt state")
)

// CorruptStateError is fatal to one record only.
type CorruptStateError struct {
	ID  string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("token %s: %v: %v", e.ID, ErrCorruptState, e.Err)
}

func (e *CorruptStateError) Unwrap() []error {
	return []error{ErrCorruptState, e.Err}
}

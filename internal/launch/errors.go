package launch

import "errors"

var (
	// ErrMissingCredential is returned when a mint is needed and no wallet credential was given.
	ErrMissingCredential = errors.New("missing wallet credential")

	// ErrAlreadyLaunched is returned for a completed token unless failed platforms are retried.
	ErrAlreadyLaunched = errors.New("token already launched")

	// ErrLaunchInProgress is returned when another launch holds the token.
	ErrLaunchInProgress = errors.New("launch in progress")
)

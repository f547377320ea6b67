package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/launch"
	"solana-token-launcher/internal/ledger"
	"solana-token-launcher/internal/storage"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0
	ExitFailure = 1 // launch or mint failed, token not found
	ExitUsage   = 2 // invalid input or configuration
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not ExitErrors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps launcher errors to exit codes.
func classify(message string, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, launch.ErrMissingCredential), errors.Is(err, ledger.ErrMalformedCredential):
		return WrapExitError(ExitUsage, message, err)
	case errors.Is(err, storage.ErrNotFound):
		return WrapExitError(ExitFailure, message, err)
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitFailure, message+" (interrupted, resume with retry)", err)
	default:
		return WrapExitError(ExitFailure, message, err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

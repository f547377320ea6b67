// Package ledger mints tokens on the Solana ledger.
//
// Client is the capability the launch orchestrator consumes. RPCClient submits real
// transactions through a Solana node; SimulatedClient produces placeholder mints and is
// only wired when simulation is explicitly enabled.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures.
type ErrorKind string

const (
	KindInsufficientFunds   ErrorKind = "INSUFFICIENT_FUNDS"
	KindRPCUnavailable      ErrorKind = "RPC_UNAVAILABLE"
	KindRejectedTransaction ErrorKind = "REJECTED_TRANSACTION"
	KindUnknown             ErrorKind = "UNKNOWN"
)

// Error is a ledger failure. Only KindRPCUnavailable is retryable.
type Error struct {
	Kind ErrorKind
	Op   string // mint step that failed
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ledger %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ledger %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the mint may be attempted again.
func (e *Error) Retryable() bool {
	return e.Kind == KindRPCUnavailable
}

// IsRetryable reports whether err is a retryable ledger error.
func IsRetryable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Retryable()
}

// KindOf returns the kind of a ledger error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// MintParams describes the token to mint.
type MintParams struct {
	Name          string
	Symbol        string
	Description   string
	ImageRef      string
	Decimals      uint8
	InitialSupply uint64 // whole tokens, scaled by Decimals when minted
}

// MintResult is a successful mint.
type MintResult struct {
	MintAddress string
	Signature   string
	Simulated   bool
}

// Client mints tokens.
type Client interface {
	// Mint creates a new token mint paid for and owned by cred.
	// Failures are returned as *Error.
	Mint(ctx context.Context, cred *WalletCredential, params MintParams) (*MintResult, error)
}

package solana

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks failures where the RPC endpoint could not be reached or
// kept answering with transient errors (transport failure, 429, 5xx) until retries ran out.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient defines the Solana RPC HTTP methods used for minting and listing checks.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash returns the blockhash a new transaction must reference.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits a fully signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, tx []byte) (string, error)

	// GetSignatureStatuses returns statuses for the given signatures, nil entries for unknown ones.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetAccountInfo retrieves account info by public key. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetMinimumBalanceForRentExemption returns the lamports an account of size bytes needs.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
}

// RPCError represents a JSON-RPC 2.0 error returned by the node.
// RPC errors are answers, not outages, and are never retried.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    *RPCErrorDetail `json:"data,omitempty"`
}

// RPCErrorDetail carries preflight simulation output on sendTransaction failures.
type RPCErrorDetail struct {
	Err  interface{} `json:"err"`
	Logs []string    `json:"logs"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

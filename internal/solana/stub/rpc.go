package stub

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-launcher/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Errors set on the struct are returned by the matching method.
type RPCClient struct {
	mu sync.Mutex

	Balances  map[string]uint64
	Accounts  map[string]*solana.AccountInfo
	Statuses  map[string]*solana.SignatureStatus
	Blockhash *solana.Blockhash

	BalanceErr   error
	BlockhashErr error
	SendErr      error
	StatusErr    error
	AccountErr   error
	RentErr      error

	// SendErrs is consumed one entry per SendTransaction call before SendErr applies.
	SendErrs []error

	// AutoConfirm marks every sent transaction confirmed.
	AutoConfirm bool

	Sent [][]byte
}

// NewRPCClient creates a new stub RPC client that confirms every transaction.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:  make(map[string]uint64),
		Accounts:  make(map[string]*solana.AccountInfo),
		Statuses:  make(map[string]*solana.SignatureStatus),
		Blockhash: &solana.Blockhash{
			Blockhash:            "GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi",
			LastValidBlockHeight: 1000,
			Slot:                 900,
		},
		AutoConfirm: true,
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetBalance returns the stored balance, zero for unknown accounts.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BalanceErr != nil {
		return 0, c.BalanceErr
	}
	return c.Balances[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockhashErr != nil {
		return nil, c.BlockhashErr
	}
	bh := *c.Blockhash
	return &bh, nil
}

// SendTransaction records the transaction and returns a signature derived from its bytes.
func (c *RPCClient) SendTransaction(_ context.Context, tx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.SendErrs) > 0 {
		err := c.SendErrs[0]
		c.SendErrs = c.SendErrs[1:]
		if err != nil {
			return "", err
		}
	} else if c.SendErr != nil {
		return "", c.SendErr
	}

	c.Sent = append(c.Sent, append([]byte(nil), tx...))
	hash := sha256.Sum256(tx)
	sig := base58.Encode(hash[:])
	if c.AutoConfirm {
		c.Statuses[sig] = &solana.SignatureStatus{Slot: 901, ConfirmationStatus: solana.CommitmentConfirmed}
	}
	return sig, nil
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// GetAccountInfo returns the stored account, nil if absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AccountErr != nil {
		return nil, c.AccountErr
	}
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// rentPerByte is lamports per byte-year times the two-year exemption threshold.
const rentPerByte = 3480 * 2

// accountOverhead is the per-account storage overhead charged by rent.
const accountOverhead = 128

// GetMinimumBalanceForRentExemption applies the default rent schedule.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RentErr != nil {
		return 0, c.RentErr
	}
	return (accountOverhead + size) * rentPerByte, nil
}

// SentCount returns the number of accepted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// SetBalance sets an account balance.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	c.Balances[pubkey] = lamports
	c.mu.Unlock()
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	c.Accounts[pubkey] = info
	c.mu.Unlock()
}

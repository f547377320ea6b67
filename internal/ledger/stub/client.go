package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-token-launcher/internal/ledger"
)

// Client implements ledger.Client for testing.
// Errs is consumed one entry per call; once empty every call succeeds.
type Client struct {
	mu    sync.Mutex
	Errs  []error
	calls int

	// Block, when set, is waited on before each mint returns.
	Block chan struct{}
}

// NewClient creates a stub ledger that fails with errs in order, then succeeds.
func NewClient(errs ...error) *Client {
	return &Client{Errs: errs}
}

var _ ledger.Client = (*Client)(nil)

// Mint returns the next queued error or a deterministic mint address.
func (c *Client) Mint(ctx context.Context, _ *ledger.WalletCredential, params ledger.MintParams) (*ledger.MintResult, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	var err error
	if len(c.Errs) > 0 {
		err = c.Errs[0]
		c.Errs = c.Errs[1:]
	}
	block := c.Block
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &ledger.Error{Kind: ledger.KindUnknown, Op: "mint", Err: ctx.Err()}
		}
	}

	if err != nil {
		return nil, err
	}
	return &ledger.MintResult{
		MintAddress: fmt.Sprintf("Mint%s%d", params.Symbol, n),
		Signature:   fmt.Sprintf("sig%d", n),
	}, nil
}

// Calls returns the number of Mint invocations.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-launcher/internal/solana"
)

// OnchainProvider confirms the mint account exists and is owned by a token program.
// Aggregators that index the ledger directly pick such mints up without a submission.
type OnchainProvider struct {
	cfg Config
	rpc solana.RPCClient
}

// NewOnchainProvider creates an on-chain detection provider.
func NewOnchainProvider(cfg Config, rpc solana.RPCClient) *OnchainProvider {
	return &OnchainProvider{cfg: cfg, rpc: rpc}
}

var (
	_ Provider        = (*OnchainProvider)(nil)
	_ TimeoutOverride = (*OnchainProvider)(nil)
)

func (p *OnchainProvider) ID() string             { return p.cfg.ID }
func (p *OnchainProvider) Idempotent() bool       { return true }
func (p *OnchainProvider) Timeout() time.Duration { return p.cfg.Timeout }

// Attempt looks up the mint account.
func (p *OnchainProvider) Attempt(ctx context.Context, token Token) Outcome {
	info, err := p.rpc.GetAccountInfo(ctx, token.MintAddress)
	if err != nil {
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			return Failed(KindUnexpectedResponse, rpcErr.Error())
		}
		if errors.Is(err, solana.ErrUnavailable) {
			return Failed(KindTransportError, err.Error())
		}
		return classifyError(ctx, err)
	}
	if info == nil {
		return Failed(KindNotFound, "mint account not found")
	}
	if !info.IsTokenMint() {
		return Failed(KindUnexpectedResponse, fmt.Sprintf("account owned by %s, not a token program", info.Owner))
	}

	if p.cfg.ListingURLTemplate != "" {
		return Listed(expand(p.cfg.ListingURLTemplate, token))
	}
	return Listed("solana:" + token.MintAddress)
}

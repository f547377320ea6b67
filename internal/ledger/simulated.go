package ledger

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"solana-token-launcher/internal/idhash"
)

// SimulatedClient produces placeholder mints without touching the ledger.
// Results carry Simulated=true so reports never pass them off as real.
type SimulatedClient struct {
	now    func() time.Time
	nonce  atomic.Int64
	logger *slog.Logger
}

// NewSimulatedClient creates a simulated ledger and warns that minting is not real.
func NewSimulatedClient(logger *slog.Logger) *SimulatedClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ledger")
	logger.Warn("simulated ledger enabled: mints are placeholders and do not exist on-chain")
	return &SimulatedClient{now: time.Now, logger: logger}
}

var _ Client = (*SimulatedClient)(nil)

// Mint returns base58(sha256(name|symbol|nonce)). The credential is optional.
func (c *SimulatedClient) Mint(ctx context.Context, _ *WalletCredential, params MintParams) (*MintResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "mint", Err: err}
	}

	nonce := c.now().UnixNano() + c.nonce.Add(1)
	mint := idhash.ComputePlaceholderMint(params.Name, params.Symbol, nonce)

	c.logger.Warn("simulated mint", "symbol", params.Symbol, "mint", mint)

	return &MintResult{
		MintAddress: mint,
		Signature:   idhash.ComputePlaceholderSignature(mint),
		Simulated:   true,
	}, nil
}

package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-launcher/internal/solana"
)

// ErrNoTxBuilder is returned by NoTxBuilder.
var ErrNoTxBuilder = errors.New("no mint transaction builder configured")

// MintTx is everything a builder needs to produce a signed mint transaction.
type MintTx struct {
	Payer           Signer
	Mint            Signer
	RecentBlockhash string
	RentLamports    uint64 // rent-exempt minimum of the mint account
	Params          MintParams
}

// TxBuilder serializes and signs the token-program instructions that create a mint,
// its metadata, and the payer's initial supply.
type TxBuilder interface {
	BuildMint(ctx context.Context, tx MintTx) ([]byte, error)
}

// TxBuilderFunc adapts a function to TxBuilder.
type TxBuilderFunc func(ctx context.Context, tx MintTx) ([]byte, error)

// BuildMint implements TxBuilder.
func (f TxBuilderFunc) BuildMint(ctx context.Context, tx MintTx) ([]byte, error) {
	return f(ctx, tx)
}

// NoTxBuilder rejects every build. Transaction construction is supplied by the
// embedding application.
var NoTxBuilder TxBuilder = TxBuilderFunc(func(context.Context, MintTx) ([]byte, error) {
	return nil, ErrNoTxBuilder
})

// RPCClientOptions configures RPCClient.
type RPCClientOptions struct {
	RPC     solana.RPCClient
	WS      solana.WSClient // optional; confirmation falls back to polling
	Builder TxBuilder       // defaults to NoTxBuilder

	MinBalanceLamports uint64
	ConfirmTimeout     time.Duration
	PollInterval       time.Duration

	Logger *slog.Logger
}

// RPCClient mints through a Solana node.
type RPCClient struct {
	opts   RPCClientOptions
	logger *slog.Logger
}

// NewRPCClient creates a ledger client over the given transport.
func NewRPCClient(opts RPCClientOptions) *RPCClient {
	if opts.Builder == nil {
		opts.Builder = NoTxBuilder
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCClient{opts: opts, logger: logger.With("component", "ledger")}
}

var _ Client = (*RPCClient)(nil)

// Mint checks the payer balance, builds and submits the mint transaction, and waits
// for confirmed commitment.
func (c *RPCClient) Mint(ctx context.Context, cred *WalletCredential, params MintParams) (*MintResult, error) {
	if cred == nil {
		return nil, &Error{Kind: KindUnknown, Op: "mint", Err: errors.New("credential required")}
	}
	payer := cred.PublicKey()

	balance, err := c.opts.RPC.GetBalance(ctx, payer)
	if err != nil {
		return nil, mapRPCError("get balance", err)
	}
	if balance < c.opts.MinBalanceLamports {
		return nil, &Error{
			Kind: KindInsufficientFunds,
			Op:   "get balance",
			Err:  fmt.Errorf("balance %d lamports below required %d", balance, c.opts.MinBalanceLamports),
		}
	}

	blockhash, err := c.opts.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, mapRPCError("get blockhash", err)
	}

	rent, err := c.opts.RPC.GetMinimumBalanceForRentExemption(ctx, solana.MintAccountSize)
	if err != nil {
		return nil, mapRPCError("get rent exemption", err)
	}

	mintKey, err := newKeypair()
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "generate mint key", Err: err}
	}

	tx, err := c.opts.Builder.BuildMint(ctx, MintTx{
		Payer:           cred,
		Mint:            mintKey,
		RecentBlockhash: blockhash.Blockhash,
		RentLamports:    rent,
		Params:          params,
	})
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "build transaction", Err: err}
	}

	sig, err := c.opts.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return nil, mapRPCError("send transaction", err)
	}

	c.logger.Info("mint submitted", "payer", payer, "mint", mintKey.PublicKey(), "signature", sig)

	if err := c.confirm(ctx, sig); err != nil {
		return nil, err
	}

	return &MintResult{MintAddress: mintKey.PublicKey(), Signature: sig}, nil
}

// confirm waits for the signature through the websocket subscription when available,
// then polls getSignatureStatuses. A timeout is reported as KindUnknown, never as a
// retryable kind, since the transaction may still land.
func (c *RPCClient) confirm(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	if c.opts.WS != nil {
		ch, err := c.opts.WS.SubscribeSignature(ctx, sig)
		if err != nil {
			c.logger.Warn("signature subscribe failed, polling", "signature", sig, "error", err)
		} else {
			select {
			case n, ok := <-ch:
				if ok {
					if n.Err != nil {
						return &Error{Kind: KindRejectedTransaction, Op: "confirm", Err: fmt.Errorf("transaction failed: %v", n.Err)}
					}
					return nil
				}
				c.logger.Warn("signature subscription dropped, polling", "signature", sig)
			case <-ctx.Done():
				return confirmTimeout(ctx, sig)
			}
		}
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.opts.RPC.GetSignatureStatuses(ctx, []string{sig})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return &Error{Kind: KindRejectedTransaction, Op: "confirm", Err: fmt.Errorf("transaction failed: %v", st.Err)}
			}
			if st.IsConfirmed() {
				return nil
			}
		} else if err != nil && ctx.Err() == nil {
			c.logger.Debug("signature status poll failed", "signature", sig, "error", err)
		}

		select {
		case <-ctx.Done():
			return confirmTimeout(ctx, sig)
		case <-ticker.C:
		}
	}
}

func confirmTimeout(ctx context.Context, sig string) error {
	return &Error{
		Kind: KindUnknown,
		Op:   "confirm",
		Err:  fmt.Errorf("signature %s not confirmed: %w", sig, ctx.Err()),
	}
}

// mapRPCError converts transport and node errors into ledger error kinds.
func mapRPCError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	if errors.Is(err, solana.ErrUnavailable) {
		return &Error{Kind: KindRPCUnavailable, Op: op, Err: err}
	}

	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		if isInsufficientFunds(rpcErr) {
			return &Error{Kind: KindInsufficientFunds, Op: op, Err: err}
		}
		// Node-side transient conditions.
		if rpcErr.Code == -32005 || rpcErr.Code == -32004 {
			return &Error{Kind: KindRPCUnavailable, Op: op, Err: err}
		}
		return &Error{Kind: KindRejectedTransaction, Op: op, Err: err}
	}

	return &Error{Kind: KindUnknown, Op: op, Err: err}
}

var insufficientFundsMarkers = []string{
	"insufficient funds",
	"insufficient lamports",
	"no record of a prior credit",
}

func isInsufficientFunds(e *solana.RPCError) bool {
	texts := []string{e.Message}
	if e.Data != nil {
		texts = append(texts, e.Data.Logs...)
		if e.Data.Err != nil {
			texts = append(texts, fmt.Sprint(e.Data.Err))
		}
	}
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, marker := range insufficientFundsMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
		// InsufficientFundsForFee and friends from the runtime.
		if strings.Contains(text, "InsufficientFunds") {
			return true
		}
	}
	return false
}

// keypair is a freshly generated mint account key.
type keypair struct {
	key ed25519.PrivateKey
}

func newKeypair() (*keypair, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &keypair{key: key}, nil
}

func (k *keypair) PublicKey() string {
	return base58.Encode(k.key[ed25519.SeedSize:])
}

func (k *keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// ScaledSupply returns the initial supply in base units, saturating on overflow.
func ScaledSupply(supply uint64, decimals uint8) uint64 {
	out := supply
	for i := uint8(0); i < decimals; i++ {
		if out > math.MaxUint64/10 {
			return math.MaxUint64
		}
		out *= 10
	}
	return out
}

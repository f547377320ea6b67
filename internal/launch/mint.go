package launch

import (
	"context"
	"errors"
	"time"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/events"
	"solana-token-launcher/internal/ledger"
)

// mintToken moves rec through MINTING to MINTED or MINT_FAILED. Cancellation returns
// ctx.Err() and leaves the record MINTING.
func (o *Orchestrator) mintToken(ctx context.Context, rec *domain.TokenRecord, cred *ledger.WalletCredential) (*domain.TokenRecord, error) {
	rec, err := o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		if r.IsMinted() {
			return nil, nil
		}
		r.LaunchState = domain.LaunchStateMinting
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if rec.IsMinted() {
		return rec, nil
	}
	o.publish(ctx, events.Event{Type: events.TypeMintStarted, TokenID: rec.ID, Symbol: rec.Symbol})

	params := ledger.MintParams{
		Name:          rec.Name,
		Symbol:        rec.Symbol,
		Description:   rec.Description,
		Decimals:      o.mint.Decimals,
		InitialSupply: o.mint.InitialSupply,
	}
	if rec.ImageRef != nil {
		params.ImageRef = *rec.ImageRef
	}

	started := o.now()
	res, mintErr := o.mintWithRetry(ctx, cred, params)
	if o.metrics != nil {
		o.metrics.RecordMint(o.now().Sub(started))
	}

	if mintErr != nil && ctx.Err() != nil {
		// Interrupted, not failed: the record stays MINTING for retry.
		o.logger.Info("mint interrupted", "id", rec.ID, "error", mintErr)
		return nil, ctx.Err()
	}
	if mintErr != nil {
		o.logger.Warn("mint failed", "id", rec.ID, "kind", ledger.KindOf(mintErr), "error", mintErr)
		if _, err := o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
			if r.IsMinted() {
				return nil, nil
			}
			r.LaunchState = domain.LaunchStateMintFailed
			r.LastError = mintErr.Error()
			return r, nil
		}); err != nil {
			o.logger.Error("persist mint failure", "id", rec.ID, "error", err)
		}
		o.publish(ctx, events.Event{Type: events.TypeMintFailed, TokenID: rec.ID, Symbol: rec.Symbol, Error: mintErr.Error()})
		return nil, mintErr
	}

	rec, err = o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		if err := r.SetMint(res.MintAddress, res.Signature, res.Simulated); err != nil {
			if errors.Is(err, domain.ErrMintAlreadySet) {
				return nil, nil
			}
			return nil, err
		}
		r.LaunchState = domain.LaunchStateMinted
		r.LastError = ""
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("token minted", "id", rec.ID, "mint", *rec.MintAddress, "simulated", rec.Simulated)
	o.publish(ctx, events.Event{Type: events.TypeMinted, TokenID: rec.ID, Symbol: rec.Symbol, MintAddress: *rec.MintAddress})
	return rec, nil
}

// mintWithRetry retries retryable ledger errors with exponential backoff. Cancellation
// during a backoff wait returns ctx.Err().
func (o *Orchestrator) mintWithRetry(ctx context.Context, cred *ledger.WalletCredential, params ledger.MintParams) (*ledger.MintResult, error) {
	delay := o.mint.RetryDelay

	for attempt := 0; ; attempt++ {
		res, err := o.ledger.Mint(ctx, cred, params)
		if err == nil {
			return res, nil
		}

		var le *ledger.Error
		if !errors.As(err, &le) {
			err = &ledger.Error{Kind: ledger.KindUnknown, Op: "mint", Err: err}
		}
		if !ledger.IsRetryable(err) || attempt >= o.mint.Retries {
			return nil, err
		}

		if o.metrics != nil {
			o.metrics.RecordMintRetry()
		}
		o.logger.Info("retrying mint", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > o.mint.MaxDelay {
			delay = o.mint.MaxDelay
		}
	}
}

package launch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"solana-token-launcher/internal/chain"
	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/events"
	"solana-token-launcher/internal/provider"
	"solana-token-launcher/internal/storage"
)

// listToken runs the fallback chain of every selected platform concurrently, then marks the
// token COMPLETED once all platforms are terminal. It reports whether ctx cancelled a chain.
func (o *Orchestrator) listToken(ctx context.Context, rec *domain.TokenRecord, sel selection) (*domain.TokenRecord, bool, error) {
	var selected []string
	for _, name := range rec.Platforms() {
		if sel.includes(name, rec.PlatformStatuses[name].State) {
			selected = append(selected, name)
		}
	}

	rec, err := o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		r.LaunchState = domain.LaunchStateListing
		for _, name := range selected {
			ps := r.PlatformStatuses[name]
			if ps.State == domain.PlatformStateInProgress {
				continue
			}
			if err := ps.Transition(domain.PlatformStateInProgress); err != nil {
				return nil, fmt.Errorf("platform %s: %w", name, err)
			}
			ps.SucceededProvider = nil
			ps.ListingReference = nil
		}
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}

	// A platform that cannot persist stops its siblings.
	results := make([]chain.Result, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range selected {
		prior := append([]domain.AttemptRecord(nil), rec.PlatformStatuses[name].Attempts...)
		g.Go(func() error {
			res, err := o.listPlatform(gctx, rec, name, prior)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	cancelled := false
	for _, res := range results {
		if res.Cancelled {
			cancelled = true
		}
	}

	rec, err = o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		if !r.AllPlatformsTerminal() || r.LaunchState == domain.LaunchStateCompleted {
			return nil, nil
		}
		r.LaunchState = domain.LaunchStateCompleted
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}

	if rec.LaunchState == domain.LaunchStateCompleted {
		o.publish(ctx, events.Event{Type: events.TypeCompleted, TokenID: rec.ID, Symbol: rec.Symbol, MintAddress: *rec.MintAddress})
	}
	return rec, cancelled, nil
}

// listPlatform runs one chain, persisting each attempt as it is recorded.
func (o *Orchestrator) listPlatform(ctx context.Context, rec *domain.TokenRecord, platform string, prior []domain.AttemptRecord) (chain.Result, error) {
	providers, _ := o.registry.Chain(platform)
	mint := *rec.MintAddress

	token := provider.Token{
		ID:          rec.ID,
		Platform:    platform,
		MintAddress: mint,
		Name:        rec.Name,
		Symbol:      rec.Symbol,
		Description: rec.Description,
	}
	if rec.ImageRef != nil {
		token.ImageRef = *rec.ImageRef
	}

	o.publish(ctx, events.Event{Type: events.TypePlatformStarted, TokenID: rec.ID, Platform: platform, MintAddress: mint})

	// A failed write stops the chain so no provider lists a token the store no longer tracks.
	onAttempt := func(a domain.AttemptRecord) error {
		_, err := o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
			ps, ok := r.PlatformStatuses[platform]
			if !ok {
				return nil, fmt.Errorf("platform %s missing from token %s", platform, r.ID)
			}
			ps.AppendAttempt(a)
			return r, nil
		})
		if err != nil {
			return err
		}

		ev := events.Event{Type: events.TypeAttemptRecorded, TokenID: rec.ID, Platform: platform, MintAddress: mint, Attempt: &a}
		if a.Outcome != domain.OutcomeSuccess {
			ev.Error = a.ErrorKind
		}
		o.publish(ctx, ev)
		return nil
	}

	res := o.executor.Run(ctx, chain.Request{
		Platform:  platform,
		Providers: providers,
		Token:     token,
		Prior:     prior,
		OnAttempt: onAttempt,
	})
	if res.HaltErr != nil {
		o.appendAttemptLog(ctx, rec.ID, platform, mint, res.Attempts)
		return res, fmt.Errorf("persist attempt on %s: %w", platform, res.Err())
	}

	o.appendAttemptLog(ctx, rec.ID, platform, mint, res.Attempts)

	if res.Cancelled {
		o.logger.Info("platform interrupted", "id", rec.ID, "platform", platform, "attempts", len(res.Attempts))
		return res, nil
	}

	_, err := o.update(ctx, rec.ID, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		ps := r.PlatformStatuses[platform]
		if err := ps.Transition(res.State); err != nil {
			return nil, fmt.Errorf("platform %s: %w", platform, err)
		}
		if res.State == domain.PlatformStateSucceeded {
			succeeded, reference := res.SucceededProvider, res.Reference
			ps.SucceededProvider = &succeeded
			if reference != "" {
				ps.ListingReference = &reference
			}
		}
		return r, nil
	})
	if err != nil {
		return res, err
	}

	if o.metrics != nil {
		o.metrics.RecordPlatformResult(platform, res.State)
	}
	o.logger.Info("platform finished", "id", rec.ID, "platform", platform, "state", res.State,
		"provider", res.SucceededProvider, "attempts", len(res.Attempts))
	o.publish(ctx, events.Event{Type: events.TypePlatformFinished, TokenID: rec.ID, Platform: platform, MintAddress: mint, State: res.State})
	return res, nil
}

func (o *Orchestrator) appendAttemptLog(ctx context.Context, id, platform, mint string, attempts []domain.AttemptRecord) {
	if o.attemptLog == nil || len(attempts) == 0 {
		return
	}
	entries := make([]storage.AttemptEntry, 0, len(attempts))
	for _, a := range attempts {
		entries = append(entries, storage.AttemptEntry{TokenID: id, Platform: platform, MintAddress: mint, AttemptRecord: a})
	}
	if err := o.attemptLog.Append(context.WithoutCancel(ctx), entries); err != nil {
		o.logger.Warn("append attempt log failed", "id", id, "platform", platform, "error", err)
	}
}

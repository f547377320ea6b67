// Package chain runs ordered provider fallback chains for one platform.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/provider"
)

// DefaultAttemptTimeout bounds an attempt when no timeout is configured.
const DefaultAttemptTimeout = 30 * time.Second

// Detail recorded when a non-idempotent provider is skipped.
const skippedNonIdempotent = "non-idempotent provider with unknown prior outcome"

var (
	// ErrExhausted reports that every provider failed. It is never escalated past the platform.
	ErrExhausted = errors.New("provider chain exhausted")

	// ErrCancelled reports that the chain stopped on cancellation and can be resumed.
	ErrCancelled = errors.New("provider chain cancelled")

	// ErrHalted reports that OnAttempt failed and no further provider was started.
	ErrHalted = errors.New("provider chain halted")
)

// Observer receives every attempt as it is recorded.
type Observer interface {
	ObserveAttempt(platform string, rec domain.AttemptRecord)
}

// Options configures Executor.
type Options struct {
	AttemptTimeout time.Duration    // global per-attempt bound
	Now            func() time.Time // clock, default time.Now
	Observers      []Observer
	Logger         *slog.Logger
}

// Executor walks provider chains.
type Executor struct {
	timeout   time.Duration
	now       func() time.Time
	observers []Observer
	logger    *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(opts Options) *Executor {
	e := &Executor{
		timeout:   opts.AttemptTimeout,
		now:       opts.Now,
		observers: opts.Observers,
		logger:    opts.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultAttemptTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "chain")
	return e
}

// Request is one chain run.
type Request struct {
	Platform  string
	Providers []provider.Provider    // fallback order
	Token     provider.Token         // Platform and mint must be set
	Prior     []domain.AttemptRecord // attempts from earlier runs of this platform

	// OnAttempt is called synchronously after each attempt, before the next provider starts.
	// A non-nil error stops the chain.
	OnAttempt func(domain.AttemptRecord) error
}

// Result is the aggregated chain outcome.
type Result struct {
	Platform          string
	State             domain.PlatformState
	SucceededProvider string
	Reference         string
	Attempts          []domain.AttemptRecord // this run only
	Cancelled         bool
	HaltErr           error // OnAttempt error that stopped the chain
}

// Err returns ErrHalted for a halted chain, ErrExhausted for a failed chain, ErrCancelled
// for a cancelled one, nil otherwise.
func (r Result) Err() error {
	switch {
	case r.HaltErr != nil:
		return fmt.Errorf("%w: %w", ErrHalted, r.HaltErr)
	case r.Cancelled:
		return ErrCancelled
	case r.State == domain.PlatformStateFailed:
		return ErrExhausted
	default:
		return nil
	}
}

// Run tries each provider in order until one succeeds.
//
// Providers run strictly sequentially, each under its own timeout when configured and the
// global timeout otherwise. Any failure advances to the next provider. A chain whose every
// attempt was unsupported ends UNSUPPORTED; otherwise exhaustion ends FAILED. Cancellation
// of ctx records the in-flight attempt as cancelled and leaves the platform IN_PROGRESS. An
// OnAttempt error halts the chain with the platform left IN_PROGRESS.
func (e *Executor) Run(ctx context.Context, req Request) Result {
	res := Result{Platform: req.Platform, State: domain.PlatformStateInProgress}

	if len(req.Providers) == 0 {
		res.State = domain.PlatformStateUnsupported
		return res
	}

	// record reports whether the chain may continue.
	record := func(rec domain.AttemptRecord) bool {
		res.Attempts = append(res.Attempts, rec)
		for _, o := range e.observers {
			o.ObserveAttempt(req.Platform, rec)
		}
		if req.OnAttempt == nil {
			return true
		}
		if err := req.OnAttempt(rec); err != nil {
			res.HaltErr = err
			res.State = domain.PlatformStateInProgress
			e.logger.Warn("chain halted", "platform", req.Platform, "provider", rec.ProviderID, "error", err)
			return false
		}
		return true
	}

	allUnsupported := true

	for _, p := range req.Providers {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res
		}

		if !p.Idempotent() && priorUnknown(req.Prior, p.ID()) {
			e.logger.Warn("skipping non-idempotent provider", "platform", req.Platform, "provider", p.ID())
			if !record(domain.AttemptRecord{
				ProviderID:  p.ID(),
				StartedAt:   e.now().UnixMilli(),
				Outcome:     domain.OutcomeSkipped,
				ErrorDetail: skippedNonIdempotent,
			}) {
				return res
			}
			allUnsupported = false
			continue
		}

		rec, out := e.attempt(ctx, p, req.Token)

		if !out.Success && ctx.Err() != nil {
			rec.Outcome = domain.OutcomeCancelled
			rec.ErrorKind = ""
			rec.ErrorDetail = ctx.Err().Error()
			res.Cancelled = true
			record(rec)
			e.logger.Info("chain cancelled", "platform", req.Platform, "provider", p.ID())
			return res
		}

		if !record(rec) {
			return res
		}

		if out.Success {
			res.State = domain.PlatformStateSucceeded
			res.SucceededProvider = p.ID()
			res.Reference = out.Reference
			return res
		}

		if rec.Outcome != domain.OutcomeUnsupported {
			allUnsupported = false
		}
		e.logger.Debug("provider failed", "platform", req.Platform, "provider", p.ID(),
			"outcome", rec.Outcome, "kind", rec.ErrorKind)
	}

	if allUnsupported {
		res.State = domain.PlatformStateUnsupported
	} else {
		res.State = domain.PlatformStateFailed
	}
	return res
}

// attempt invokes one provider under its bounded timeout.
func (e *Executor) attempt(ctx context.Context, p provider.Provider, token provider.Token) (domain.AttemptRecord, provider.Outcome) {
	started := e.now()

	actx, cancel := context.WithTimeout(ctx, e.timeoutFor(p))
	out := p.Attempt(actx, token.ForProvider(p.ID()))
	deadlineHit := errors.Is(actx.Err(), context.DeadlineExceeded)
	cancel()

	rec := domain.AttemptRecord{
		ProviderID: p.ID(),
		StartedAt:  started.UnixMilli(),
		DurationMs: e.now().Sub(started).Milliseconds(),
	}

	switch {
	case out.Success:
		rec.Outcome = domain.OutcomeSuccess
		return rec, out
	case out.ErrorKind == provider.KindTimeout || (deadlineHit && ctx.Err() == nil):
		rec.Outcome = domain.OutcomeTimeout
		rec.ErrorKind = string(provider.KindTimeout)
	case out.ErrorKind == provider.KindUnsupported:
		rec.Outcome = domain.OutcomeUnsupported
		rec.ErrorKind = string(provider.KindUnsupported)
	case out.ErrorKind == provider.KindTransportError:
		rec.Outcome = domain.OutcomeTransportError
		rec.ErrorKind = string(provider.KindTransportError)
	default:
		rec.Outcome = domain.OutcomeRejected
		rec.ErrorKind = string(out.ErrorKind)
		if rec.ErrorKind == "" {
			rec.ErrorKind = string(provider.KindUnexpectedResponse)
		}
	}
	rec.ErrorDetail = out.Detail
	return rec, out
}

func (e *Executor) timeoutFor(p provider.Provider) time.Duration {
	if o, ok := p.(provider.TimeoutOverride); ok {
		if d := o.Timeout(); d > 0 {
			return d
		}
	}
	return e.timeout
}

// priorUnknown reports whether an earlier attempt of the provider ended without a
// known outcome.
func priorUnknown(prior []domain.AttemptRecord, providerID string) bool {
	for _, a := range prior {
		if a.ProviderID != providerID {
			continue
		}
		if a.Outcome == domain.OutcomeTimeout || a.Outcome == domain.OutcomeCancelled {
			return true
		}
	}
	return false
}

// Package launch drives a token from creation through mint to per-platform listing.
//
// Flow: validate → mint (ledger) → listing chains per platform (concurrent) → completed.
// Every transition is persisted through the token store, which is the only place a launch's
// progress is visible across calls.
package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-token-launcher/internal/chain"
	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/events"
	"solana-token-launcher/internal/ledger"
	"solana-token-launcher/internal/observability"
	"solana-token-launcher/internal/provider"
	"solana-token-launcher/internal/storage"
)

// MintOptions configures the mint step.
type MintOptions struct {
	Decimals      uint8
	InitialSupply uint64

	// Retries bounds extra mint attempts after a retryable ledger error.
	Retries    int
	RetryDelay time.Duration // initial backoff, doubled per retry
	MaxDelay   time.Duration
}

// Default mint options.
const (
	DefaultDecimals      = 9
	DefaultInitialSupply = 1_000_000_000
	DefaultMintRetries   = 3
	DefaultRetryDelay    = time.Second
	DefaultMaxRetryDelay = 10 * time.Second
)

// Options for creating Orchestrator.
type Options struct {
	// Required
	Store    storage.TokenStore
	Ledger   ledger.Client
	Registry *provider.Registry
	Executor *chain.Executor

	// Optional
	Guard      Guard              // default LocalGuard
	AttemptLog storage.AttemptLog // audit sink for every attempt
	Events     events.Publisher
	Metrics    *observability.Metrics

	Mint MintOptions

	// CredentialOptional admits launches without a credential. Only the simulated ledger
	// accepts a nil credential.
	CredentialOptional bool

	NewID  func() string    // token id generator, default uuid.NewString
	Now    func() time.Time // clock, default time.Now
	Logger *slog.Logger
}

// RetryOptions selects what Resume re-runs.
type RetryOptions struct {
	// Platforms restricts the run to these platforms. Empty means every eligible platform.
	Platforms []string

	// RetryFailed re-enters FAILED and UNSUPPORTED platforms. SUCCEEDED platforms never re-run.
	RetryFailed bool
}

// Orchestrator runs launches.
type Orchestrator struct {
	store      storage.TokenStore
	ledger     ledger.Client
	registry   *provider.Registry
	executor   *chain.Executor
	guard      Guard
	attemptLog storage.AttemptLog
	events     events.Publisher
	metrics    *observability.Metrics
	mint       MintOptions
	credOpt    bool
	newID      func() string
	now        func() time.Time
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.Ledger == nil || opts.Registry == nil || opts.Executor == nil {
		return nil, errors.New("launch: store, ledger, registry and executor are required")
	}

	o := &Orchestrator{
		store:      opts.Store,
		ledger:     opts.Ledger,
		registry:   opts.Registry,
		executor:   opts.Executor,
		guard:      opts.Guard,
		attemptLog: opts.AttemptLog,
		events:     opts.Events,
		metrics:    opts.Metrics,
		mint:       opts.Mint,
		credOpt:    opts.CredentialOptional,
		newID:      opts.NewID,
		now:        opts.Now,
		logger:     opts.Logger,
		active:     make(map[string]*activeRun),
	}
	if o.guard == nil {
		o.guard = NewLocalGuard()
	}
	if o.events == nil {
		o.events = events.Nop{}
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "launch")

	if o.mint.Decimals == 0 {
		o.mint.Decimals = DefaultDecimals
	}
	if o.mint.InitialSupply == 0 {
		o.mint.InitialSupply = DefaultInitialSupply
	}
	if o.mint.Retries < 0 {
		o.mint.Retries = 0
	}
	if o.mint.RetryDelay <= 0 {
		o.mint.RetryDelay = DefaultRetryDelay
	}
	if o.mint.MaxDelay <= 0 {
		o.mint.MaxDelay = DefaultMaxRetryDelay
	}
	return o, nil
}

// Launch validates req, creates a token record, mints and lists it.
//
// Errors: *domain.ValidationError and ErrMissingCredential before any side effect,
// *ledger.Error when the mint fails (no listing is attempted), ErrLaunchInProgress when the
// id is held. On cancellation the partial report is returned together with ctx.Err().
func (o *Orchestrator) Launch(ctx context.Context, req domain.LaunchRequest, cred *ledger.WalletCredential) (*domain.LaunchReport, error) {
	req = req.Normalize()
	if err := req.Validate(o.registry.Configured()); err != nil {
		o.recordLaunch(observability.LaunchResultRejected)
		return nil, err
	}
	if cred == nil && !o.credOpt {
		o.recordLaunch(observability.LaunchResultRejected)
		return nil, ErrMissingCredential
	}

	id := o.newID()
	release, err := o.guard.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	rec := domain.NewTokenRecord(id, req, o.now().UnixMilli())
	if err := o.store.Create(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyLaunched
		}
		return nil, fmt.Errorf("create token record: %w", err)
	}
	o.logger.Info("launch created", "id", id, "symbol", req.Symbol, "platforms", req.Platforms)

	return o.run(ctx, id, cred, selection{})
}

// Resume moves an existing token forward.
//
// A token that is not minted is minted first; an existing mint address is never replaced.
// Platforms left IN_PROGRESS or NOT_ATTEMPTED by an interrupted run continue with their
// prior attempts kept. RetryFailed additionally re-enters FAILED and UNSUPPORTED platforms.
// A COMPLETED token without RetryFailed returns ErrAlreadyLaunched and is not modified.
func (o *Orchestrator) Resume(ctx context.Context, id string, cred *ledger.WalletCredential, opts RetryOptions) (*domain.LaunchReport, error) {
	release, err := o.guard.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, p := range opts.Platforms {
		if _, ok := rec.PlatformStatuses[p]; !ok {
			return nil, &domain.ValidationError{Field: "platforms", Reason: fmt.Sprintf("%q is not part of token %s", p, id)}
		}
	}
	if rec.LaunchState == domain.LaunchStateCompleted && !opts.RetryFailed {
		return nil, ErrAlreadyLaunched
	}
	if !rec.IsMinted() && cred == nil && !o.credOpt {
		return nil, ErrMissingCredential
	}

	return o.run(ctx, id, cred, selection{only: opts.Platforms, retryFailed: opts.RetryFailed})
}

// Status returns the report of a stored token.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.LaunchReport, error) {
	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewLaunchReport(rec), nil
}

// List returns every stored token ordered by creation time.
func (o *Orchestrator) List(ctx context.Context) ([]*domain.TokenRecord, error) {
	return o.store.List(ctx)
}

// Delete cancels an in-flight launch of id, waits for it to stop and removes the record.
// Without a local run Delete takes the guard, so a launch held by another process
// returns ErrLaunchInProgress.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	o.mu.Lock()
	run := o.active[id]
	o.mu.Unlock()

	if run != nil {
		run.cancel()
		select {
		case <-run.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		release, err := o.guard.Acquire(ctx, id)
		if err != nil {
			return err
		}
		defer release()
	}
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	o.logger.Info("token deleted", "id", id, "cancelled_run", run != nil)
	return nil
}

// selection names the platforms a run lists.
type selection struct {
	only        []string
	retryFailed bool
}

func (s selection) includes(name string, state domain.PlatformState) bool {
	if len(s.only) > 0 {
		found := false
		for _, p := range s.only {
			if p == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !state.IsTerminal() {
		return true
	}
	return s.retryFailed && state.IsRetryable()
}

// run holds the token's active slot for the whole mint and listing.
func (o *Orchestrator) run(ctx context.Context, id string, cred *ledger.WalletCredential, sel selection) (*domain.LaunchReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	o.mu.Lock()
	o.active[id] = &activeRun{cancel: cancel, done: done}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.active, id)
		o.mu.Unlock()
		close(done)
	}()

	if o.metrics != nil {
		o.metrics.ActiveLaunches.Inc()
		defer o.metrics.ActiveLaunches.Dec()
	}

	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !rec.IsMinted() {
		rec, err = o.mintToken(ctx, rec, cred)
		if err != nil {
			if ctx.Err() != nil {
				o.recordLaunch(observability.LaunchResultCancelled)
			} else {
				o.recordLaunch(observability.LaunchResultMintFailed)
			}
			return nil, err
		}
	}

	rec, cancelled, err := o.listToken(ctx, rec, sel)
	if err != nil {
		return nil, err
	}

	report := domain.NewLaunchReport(rec)
	report.Cancelled = cancelled
	if cancelled {
		o.recordLaunch(observability.LaunchResultCancelled)
		o.logger.Info("launch cancelled", "id", id)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		return report, context.Canceled
	}

	o.recordLaunch(observability.LaunchResultCompleted)
	o.logger.Info("launch completed", "id", id, "mint", report.MintAddress,
		"succeeded", report.Succeeded(), "platforms", len(report.Platforms))
	return report, nil
}

// update persists fn even after ctx is cancelled so completed work is never lost.
func (o *Orchestrator) update(ctx context.Context, id string, fn storage.Mutator) (*domain.TokenRecord, error) {
	return o.store.UpdateAtomic(context.WithoutCancel(ctx), id, func(r *domain.TokenRecord) (*domain.TokenRecord, error) {
		next, err := fn(r)
		if next != nil {
			next.UpdatedAt = o.now().UnixMilli()
		}
		return next, err
	})
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	ev.At = o.now().UnixMilli()
	if err := o.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		o.logger.Warn("publish event failed", "type", ev.Type, "id", ev.TokenID, "error", err)
	}
}

func (o *Orchestrator) recordLaunch(result string) {
	if o.metrics != nil {
		o.metrics.RecordLaunch(result)
	}
}

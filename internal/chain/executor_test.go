package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/provider"
	"solana-token-launcher/internal/provider/stub"
)

var testToken = provider.Token{
	ID:          "tok-1",
	Platform:    "pumpfun",
	MintAddress: "Mint1111",
	Name:        "Test",
	Symbol:      "TST",
}

func newTestExecutor(timeout time.Duration) *Executor {
	return NewExecutor(Options{AttemptTimeout: timeout})
}

func providers(ps ...*stub.Provider) []provider.Provider {
	out := make([]provider.Provider, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func outcomes(attempts []domain.AttemptRecord) []domain.AttemptOutcome {
	out := make([]domain.AttemptOutcome, len(attempts))
	for i, a := range attempts {
		out[i] = a.Outcome
	}
	return out
}

func TestRun_EmptyChainIsUnsupported(t *testing.T) {
	res := newTestExecutor(time.Second).Run(context.Background(), Request{Platform: "axiom", Token: testToken})

	assert.Equal(t, domain.PlatformStateUnsupported, res.State)
	assert.Empty(t, res.Attempts)
	assert.False(t, res.Cancelled)
	assert.NoError(t, res.Err())
}

func TestRun_KthProviderSucceeds(t *testing.T) {
	for k := 1; k <= 4; k++ {
		var chain []*stub.Provider
		for i := 1; i < k; i++ {
			chain = append(chain, stub.Fails("fail", provider.KindRateLimited))
		}
		winner := stub.Succeeds("winner", "ref")
		chain = append(chain, winner, stub.Succeeds("after", "never"))

		res := newTestExecutor(time.Second).Run(context.Background(), Request{
			Platform:  "pumpfun",
			Providers: providers(chain...),
			Token:     testToken,
		})

		require.Equal(t, domain.PlatformStateSucceeded, res.State, "k=%d", k)
		assert.Equal(t, "winner", res.SucceededProvider)
		assert.Equal(t, "ref", res.Reference)
		assert.Len(t, res.Attempts, k)
		assert.Equal(t, 0, chain[len(chain)-1].Calls(), "providers after the winner must not run")
	}
}

func TestRun_AllFail(t *testing.T) {
	chain := []*stub.Provider{
		stub.Fails("a", provider.KindAuthFailure),
		stub.Hangs("b"),
		stub.Fails("c", provider.KindTransportError),
		stub.Fails("d", provider.KindNotFound),
	}

	res := newTestExecutor(30*time.Millisecond).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(chain...),
		Token:     testToken,
	})

	assert.Equal(t, domain.PlatformStateFailed, res.State)
	require.Len(t, res.Attempts, len(chain))
	assert.Equal(t, []domain.AttemptOutcome{
		domain.OutcomeRejected,
		domain.OutcomeTimeout,
		domain.OutcomeTransportError,
		domain.OutcomeRejected,
	}, outcomes(res.Attempts))
	assert.Equal(t, "AUTH_FAILURE", res.Attempts[0].ErrorKind)
	assert.Equal(t, "TIMEOUT", res.Attempts[1].ErrorKind)
	assert.Equal(t, "NOT_FOUND", res.Attempts[3].ErrorKind)
	assert.ErrorIs(t, res.Err(), ErrExhausted)
}

func TestRun_OrderRespected(t *testing.T) {
	log := &stub.CallLog{}
	a := stub.Succeeds("A", "a-ref")
	b := stub.Fails("B", provider.KindUnexpectedResponse)
	c := stub.Succeeds("C", "c-ref")
	for _, p := range []*stub.Provider{a, b, c} {
		p.Log = log
	}

	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(a, b, c),
		Token:     testToken,
	})
	assert.Equal(t, "A", res.SucceededProvider)
	assert.Equal(t, []string{"A"}, log.IDs())

	// With A failing, B runs before C.
	log2 := &stub.CallLog{}
	a2 := stub.Fails("A", provider.KindNotFound)
	b2 := stub.Fails("B", provider.KindUnexpectedResponse)
	c2 := stub.Succeeds("C", "c-ref")
	for _, p := range []*stub.Provider{a2, b2, c2} {
		p.Log = log2
	}

	res = newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(a2, b2, c2),
		Token:     testToken,
	})
	assert.Equal(t, "C", res.SucceededProvider)
	assert.Equal(t, []string{"A", "B", "C"}, log2.IDs())
}

func TestRun_TimeoutThenSuccess(t *testing.T) {
	first := stub.Hangs("slow")
	second := stub.Succeeds("fast", "https://pump.fun/Mint1111")
	third := stub.Succeeds("unused", "x")

	res := newTestExecutor(30*time.Millisecond).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(first, second, third),
		Token:     testToken,
	})

	assert.Equal(t, domain.PlatformStateSucceeded, res.State)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeTimeout, domain.OutcomeSuccess}, outcomes(res.Attempts))
	assert.Equal(t, 0, third.Calls())
}

func TestRun_ProviderTimeoutOverride(t *testing.T) {
	slow := stub.Hangs("slow")
	slow.TimeoutValue = 20 * time.Millisecond

	start := time.Now()
	res := newTestExecutor(5*time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(slow),
		Token:     testToken,
	})

	assert.Less(t, time.Since(start), 2*time.Second, "override must shorten the bound")
	assert.Equal(t, domain.OutcomeTimeout, res.Attempts[0].Outcome)
}

func TestRun_ProviderTimeoutOverrideExtendsGlobal(t *testing.T) {
	slow := stub.New("slow", stub.Step{Outcome: provider.Listed("ref"), Delay: 60 * time.Millisecond})
	slow.TimeoutValue = 2 * time.Second

	res := newTestExecutor(20*time.Millisecond).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(slow),
		Token:     testToken,
	})

	assert.Equal(t, domain.PlatformStateSucceeded, res.State)
	assert.Equal(t, domain.OutcomeSuccess, res.Attempts[0].Outcome)
}

func TestRun_AllUnsupported(t *testing.T) {
	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform: "bullx",
		Providers: providers(
			stub.Fails("a", provider.KindUnsupported),
			stub.Fails("b", provider.KindUnsupported),
		),
		Token: testToken,
	})

	assert.Equal(t, domain.PlatformStateUnsupported, res.State)
	assert.Len(t, res.Attempts, 2)
	assert.Equal(t, domain.OutcomeUnsupported, res.Attempts[0].Outcome)
}

func TestRun_UnsupportedThenFailureIsFailed(t *testing.T) {
	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform: "bullx",
		Providers: providers(
			stub.Fails("a", provider.KindUnsupported),
			stub.Fails("b", provider.KindRateLimited),
		),
		Token: testToken,
	})

	assert.Equal(t, domain.PlatformStateFailed, res.State)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := stub.Fails("a", provider.KindNotFound)
	hanging := stub.Hangs("b")
	never := stub.Succeeds("c", "x")

	var mu sync.Mutex
	var seen []domain.AttemptRecord
	onAttempt := func(rec domain.AttemptRecord) error {
		mu.Lock()
		seen = append(seen, rec)
		n := len(seen)
		mu.Unlock()
		if n == 1 {
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
		}
		return nil
	}

	res := newTestExecutor(5*time.Second).Run(ctx, Request{
		Platform:  "pumpfun",
		Providers: providers(first, hanging, never),
		Token:     testToken,
		OnAttempt: onAttempt,
	})

	assert.True(t, res.Cancelled)
	assert.Equal(t, domain.PlatformStateInProgress, res.State)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeRejected, domain.OutcomeCancelled}, outcomes(res.Attempts))
	assert.Equal(t, 0, never.Calls())
	assert.ErrorIs(t, res.Err(), ErrCancelled)

	mu.Lock()
	assert.Len(t, seen, 2, "every attempt is reported")
	mu.Unlock()
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := stub.Succeeds("a", "x")
	res := newTestExecutor(time.Second).Run(ctx, Request{
		Platform:  "pumpfun",
		Providers: providers(p),
		Token:     testToken,
	})

	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Attempts)
	assert.Equal(t, 0, p.Calls())
}

func TestRun_NonIdempotentSkippedAfterUnknownOutcome(t *testing.T) {
	risky := stub.Succeeds("risky", "x")
	risky.NonIdempotent = true
	safe := stub.Succeeds("safe", "y")

	prior := []domain.AttemptRecord{{ProviderID: "risky", Outcome: domain.OutcomeTimeout}}

	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(risky, safe),
		Token:     testToken,
		Prior:     prior,
	})

	assert.Equal(t, 0, risky.Calls())
	assert.Equal(t, "safe", res.SucceededProvider)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, domain.OutcomeSkipped, res.Attempts[0].Outcome)
	assert.Empty(t, res.Attempts[0].ErrorKind)
	assert.Equal(t, skippedNonIdempotent, res.Attempts[0].ErrorDetail)
}

func TestRun_OnlySkippedProvidersIsFailed(t *testing.T) {
	risky := stub.Succeeds("risky", "x")
	risky.NonIdempotent = true

	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(risky),
		Token:     testToken,
		Prior:     []domain.AttemptRecord{{ProviderID: "risky", Outcome: domain.OutcomeCancelled}},
	})

	assert.Equal(t, 0, risky.Calls())
	assert.Equal(t, domain.PlatformStateFailed, res.State)
	assert.Equal(t, []domain.AttemptOutcome{domain.OutcomeSkipped}, outcomes(res.Attempts))
}

func TestRun_OnAttemptErrorHaltsChain(t *testing.T) {
	storeErr := errors.New("token not found")
	first := stub.Fails("a", provider.KindNotFound)
	second := stub.Succeeds("b", "x")
	third := stub.Succeeds("c", "y")

	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(first, second, third),
		Token:     testToken,
		OnAttempt: func(domain.AttemptRecord) error { return storeErr },
	})

	assert.Equal(t, 1, first.Calls())
	assert.Equal(t, 0, second.Calls(), "no provider may start after a failed report")
	assert.Equal(t, 0, third.Calls())
	assert.Equal(t, domain.PlatformStateInProgress, res.State)
	assert.Len(t, res.Attempts, 1)
	assert.ErrorIs(t, res.Err(), ErrHalted)
	assert.ErrorIs(t, res.Err(), storeErr)
}

func TestRun_OnAttemptErrorAfterSkipHaltsChain(t *testing.T) {
	risky := stub.Succeeds("risky", "x")
	risky.NonIdempotent = true
	safe := stub.Succeeds("safe", "y")

	res := newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(risky, safe),
		Token:     testToken,
		Prior:     []domain.AttemptRecord{{ProviderID: "risky", Outcome: domain.OutcomeTimeout}},
		OnAttempt: func(domain.AttemptRecord) error { return errors.New("conflict") },
	})

	assert.Equal(t, 0, safe.Calls())
	assert.ErrorIs(t, res.Err(), ErrHalted)
}

func TestRun_IdempotencyKeyPerProvider(t *testing.T) {
	a := stub.Fails("a", provider.KindNotFound)
	b := stub.Succeeds("b", "x")

	newTestExecutor(time.Second).Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(a, b),
		Token:     testToken,
	})

	ka := a.Tokens()[0].IdempotencyKey
	kb := b.Tokens()[0].IdempotencyKey
	assert.Len(t, ka, 64)
	assert.NotEqual(t, ka, kb)
}

func TestRun_AttemptTimestamps(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	tick := 0
	now := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 100 * time.Millisecond)
	}

	e := NewExecutor(Options{AttemptTimeout: time.Second, Now: now})
	res := e.Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(stub.Fails("a", provider.KindNotFound), stub.Succeeds("b", "x")),
		Token:     testToken,
	})

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, int64(100), res.Attempts[0].DurationMs)
	assert.Less(t, res.Attempts[0].StartedAt, res.Attempts[1].StartedAt)
}

type countingObserver struct {
	mu sync.Mutex
	n  map[domain.AttemptOutcome]int
}

func (o *countingObserver) ObserveAttempt(_ string, rec domain.AttemptRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.n == nil {
		o.n = make(map[domain.AttemptOutcome]int)
	}
	o.n[rec.Outcome]++
}

func TestRun_Observers(t *testing.T) {
	obs := &countingObserver{}
	e := NewExecutor(Options{AttemptTimeout: time.Second, Observers: []Observer{obs}})

	e.Run(context.Background(), Request{
		Platform:  "pumpfun",
		Providers: providers(stub.Fails("a", provider.KindTransportError), stub.Succeeds("b", "x")),
		Token:     testToken,
	})

	assert.Equal(t, 1, obs.n[domain.OutcomeTransportError])
	assert.Equal(t, 1, obs.n[domain.OutcomeSuccess])
}

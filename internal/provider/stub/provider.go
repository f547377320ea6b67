package stub

import (
	"context"
	"sync"
	"time"

	"solana-token-launcher/internal/provider"
)

// Step is one scripted attempt result.
type Step struct {
	Outcome provider.Outcome
	Delay   time.Duration // wait before returning; ctx expiry wins
	Hang    bool          // block until ctx is done
}

// CallLog records the order in which stub providers were invoked.
type CallLog struct {
	mu  sync.Mutex
	ids []string
}

// IDs returns invoked provider IDs in call order.
func (l *CallLog) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func (l *CallLog) add(id string) {
	l.mu.Lock()
	l.ids = append(l.ids, id)
	l.mu.Unlock()
}

// Provider implements provider.Provider for testing.
// Steps are consumed per call; the last step repeats.
type Provider struct {
	id            string
	NonIdempotent bool
	TimeoutValue  time.Duration
	Log           *CallLog

	mu     sync.Mutex
	steps  []Step
	calls  int
	tokens []provider.Token
}

// New creates a scripted stub provider.
func New(id string, steps ...Step) *Provider {
	return &Provider{id: id, steps: steps}
}

// Succeeds creates a provider that always lists with reference ref.
func Succeeds(id, ref string) *Provider {
	return New(id, Step{Outcome: provider.Listed(ref)})
}

// Fails creates a provider that always fails with kind.
func Fails(id string, kind provider.ErrorKind) *Provider {
	return New(id, Step{Outcome: provider.Failed(kind, "stub failure")})
}

// Hangs creates a provider that never answers before its deadline.
func Hangs(id string) *Provider {
	return New(id, Step{Hang: true})
}

var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.TimeoutOverride = (*Provider)(nil)
)

func (p *Provider) ID() string             { return p.id }
func (p *Provider) Idempotent() bool       { return !p.NonIdempotent }
func (p *Provider) Timeout() time.Duration { return p.TimeoutValue }

// Attempt plays the next scripted step.
func (p *Provider) Attempt(ctx context.Context, token provider.Token) provider.Outcome {
	p.mu.Lock()
	p.calls++
	p.tokens = append(p.tokens, token)
	step := Step{Outcome: provider.Listed("")}
	if len(p.steps) > 0 {
		step = p.steps[0]
		if len(p.steps) > 1 {
			p.steps = p.steps[1:]
		}
	}
	p.mu.Unlock()

	if p.Log != nil {
		p.Log.add(p.id)
	}

	if step.Hang {
		<-ctx.Done()
		return provider.Failed(provider.KindTimeout, ctx.Err().Error())
	}
	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return provider.Failed(provider.KindTimeout, ctx.Err().Error())
		}
	}
	return step.Outcome
}

// Calls returns the number of Attempt invocations.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Tokens returns the tokens passed to Attempt.
func (p *Provider) Tokens() []provider.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.Token(nil), p.tokens...)
}

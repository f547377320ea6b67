// Package provider defines the listing capability and its configurable implementations.
package provider

import (
	"context"
	"errors"
	"time"

	"solana-token-launcher/internal/idhash"
)

// ErrorKind classifies a failed listing attempt.
type ErrorKind string

const (
	KindTimeout            ErrorKind = "TIMEOUT"
	KindAuthFailure        ErrorKind = "AUTH_FAILURE"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindTransportError     ErrorKind = "TRANSPORT_ERROR"
	KindUnexpectedResponse ErrorKind = "UNEXPECTED_RESPONSE"
	KindUnsupported        ErrorKind = "UNSUPPORTED"
)

// Token is the descriptor submitted to a provider.
type Token struct {
	ID             string
	Platform       string
	MintAddress    string
	Name           string
	Symbol         string
	Description    string
	ImageRef       string
	IdempotencyKey string // stable per (token, platform, provider)
}

// ForProvider returns a copy of the token keyed for one provider.
func (t Token) ForProvider(providerID string) Token {
	t.IdempotencyKey = idhash.ComputeListingKey(t.ID, t.Platform, providerID, t.MintAddress)
	return t
}

// Outcome is the typed result of one attempt. Providers never return errors.
type Outcome struct {
	Success   bool
	Reference string
	ErrorKind ErrorKind
	Detail    string
}

// Listed returns a successful outcome.
func Listed(reference string) Outcome {
	return Outcome{Success: true, Reference: reference}
}

// Failed returns a failed outcome.
func Failed(kind ErrorKind, detail string) Outcome {
	return Outcome{ErrorKind: kind, Detail: detail}
}

// Unsupported returns the outcome of a provider that cannot run without a credential.
func Unsupported(detail string) Outcome {
	return Outcome{ErrorKind: KindUnsupported, Detail: detail}
}

// Provider attempts to list a token on one upstream endpoint.
type Provider interface {
	// ID identifies the provider within its platform chain.
	ID() string

	// Idempotent reports whether repeating an attempt with the same token is safe.
	Idempotent() bool

	// Attempt tries to list the token. It must return promptly once ctx is done.
	Attempt(ctx context.Context, token Token) Outcome
}

// TimeoutOverride is implemented by providers with their own attempt timeout.
type TimeoutOverride interface {
	Timeout() time.Duration
}

// classifyError maps a transport error to an outcome.
func classifyError(ctx context.Context, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Failed(KindTimeout, err.Error())
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return Failed(KindTimeout, err.Error())
	}
	return Failed(KindTransportError, err.Error())
}

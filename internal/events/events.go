// Package events publishes launch progress for the chat layer.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"solana-token-launcher/internal/domain"
)

// Type names a progress event.
type Type string

const (
	TypeMintStarted      Type = "mint_started"
	TypeMinted           Type = "minted"
	TypeMintFailed       Type = "mint_failed"
	TypePlatformStarted  Type = "platform_started"
	TypeAttemptRecorded  Type = "attempt_recorded"
	TypePlatformFinished Type = "platform_finished"
	TypeCompleted        Type = "completed"
)

// Event is one launch progress notification.
type Event struct {
	Type        Type                  `json:"type"`
	TokenID     string                `json:"token_id"`
	Symbol      string                `json:"symbol,omitempty"`
	MintAddress string                `json:"mint_address,omitempty"`
	Platform    string                `json:"platform,omitempty"`
	State       domain.PlatformState  `json:"state,omitempty"`
	Attempt     *domain.AttemptRecord `json:"attempt,omitempty"`
	Error       string                `json:"error,omitempty"`
	At          int64                 `json:"at"` // Unix timestamp in milliseconds
}

// Publisher delivers events. Delivery failures never affect a launch.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "events")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	attrs := []any{"type", ev.Type, "token_id", ev.TokenID}
	if ev.Platform != "" {
		attrs = append(attrs, "platform", ev.Platform)
	}
	if ev.State != "" {
		attrs = append(attrs, "state", ev.State)
	}
	if ev.Attempt != nil {
		attrs = append(attrs, "provider", ev.Attempt.ProviderID, "outcome", ev.Attempt.Outcome)
	}
	if ev.MintAddress != "" {
		attrs = append(attrs, "mint", ev.MintAddress)
	}

	level := slog.LevelInfo
	if ev.Error != "" {
		attrs = append(attrs, "error", ev.Error)
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "launch event", attrs...)
	return nil
}

// ChannelPublisher buffers events on a channel for in-process consumers.
// Events are dropped when the buffer is full.
type ChannelPublisher struct {
	ch chan Event

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewChannelPublisher creates a ChannelPublisher with the given buffer size.
func NewChannelPublisher(size int) *ChannelPublisher {
	if size < 0 {
		size = 0
	}
	return &ChannelPublisher{ch: make(chan Event, size)}
}

// Events returns the receive side of the buffer.
func (p *ChannelPublisher) Events() <-chan Event {
	return p.ch
}

// Publish implements Publisher.
func (p *ChannelPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- ev:
	default:
		p.dropped++
	}
	return nil
}

// Dropped returns the number of events dropped on a full buffer.
func (p *ChannelPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close closes the channel. Later publishes return ErrClosed.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// ErrClosed is returned by publishers after Close.
var ErrClosed = errors.New("publisher closed")

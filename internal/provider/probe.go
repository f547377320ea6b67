package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProbeProvider checks whether a platform already tracks the mint, for venues that
// index new tokens on their own. A 200 on the probe URL counts as listed.
type ProbeProvider struct {
	cfg    Config
	client *http.Client
}

// NewProbeProvider creates a probe provider. The endpoint may contain {mint}.
func NewProbeProvider(cfg Config, client *http.Client) *ProbeProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &ProbeProvider{cfg: cfg, client: client}
}

var (
	_ Provider        = (*ProbeProvider)(nil)
	_ TimeoutOverride = (*ProbeProvider)(nil)
)

func (p *ProbeProvider) ID() string             { return p.cfg.ID }
func (p *ProbeProvider) Idempotent() bool       { return true }
func (p *ProbeProvider) Timeout() time.Duration { return p.cfg.Timeout }

// Attempt issues the GET probe.
func (p *ProbeProvider) Attempt(ctx context.Context, token Token) Outcome {
	url := expand(p.cfg.Endpoint, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(KindTransportError, fmt.Sprintf("create request: %v", err))
	}
	setAuth(req, p.cfg)

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyError(ctx, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if out, ok := statusOutcome(resp.StatusCode, body); !ok {
		return out
	}
	if resp.StatusCode != http.StatusOK {
		return Failed(KindUnexpectedResponse, fmt.Sprintf("status %d", resp.StatusCode))
	}

	if p.cfg.ListingURLTemplate != "" {
		return Listed(expand(p.cfg.ListingURLTemplate, token))
	}
	return Listed(url)
}

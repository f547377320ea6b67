package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider submits the token as a JSON POST to a listing endpoint.
type HTTPProvider struct {
	cfg    Config
	client *http.Client
}

// NewHTTPProvider creates an HTTP listing provider.
func NewHTTPProvider(cfg Config, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

var (
	_ Provider        = (*HTTPProvider)(nil)
	_ TimeoutOverride = (*HTTPProvider)(nil)
)

func (p *HTTPProvider) ID() string             { return p.cfg.ID }
func (p *HTTPProvider) Idempotent() bool       { return p.cfg.idempotent() }
func (p *HTTPProvider) Timeout() time.Duration { return p.cfg.Timeout }

type listingPayload struct {
	TokenID     string `json:"token_id"`
	Platform    string `json:"platform"`
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ImageURI    string `json:"image_uri,omitempty"`
}

type listingResponse struct {
	URL        string `json:"url"`
	ListingURL string `json:"listing_url"`
	ID         string `json:"id"`
}

// Attempt posts the listing. Without a credential the provider is unsupported
// unless it is configured as public.
func (p *HTTPProvider) Attempt(ctx context.Context, token Token) Outcome {
	if p.cfg.Credential == "" && !p.cfg.Public {
		return Unsupported("no credential configured")
	}

	body, err := json.Marshal(listingPayload{
		TokenID:     token.ID,
		Platform:    token.Platform,
		Mint:        token.MintAddress,
		Name:        token.Name,
		Symbol:      token.Symbol,
		Description: token.Description,
		ImageURI:    token.ImageRef,
	})
	if err != nil {
		return Failed(KindUnexpectedResponse, fmt.Sprintf("marshal payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, expand(p.cfg.Endpoint, token), bytes.NewReader(body))
	if err != nil {
		return Failed(KindTransportError, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", token.IdempotencyKey)
	}
	setAuth(req, p.cfg)

	resp, err := p.client.Do(req)
	if err != nil {
		return classifyError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return classifyError(ctx, err)
	}

	if out, ok := statusOutcome(resp.StatusCode, respBody); !ok {
		return out
	}

	if p.cfg.ListingURLTemplate != "" {
		return Listed(expand(p.cfg.ListingURLTemplate, token))
	}

	var parsed listingResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return Failed(KindUnexpectedResponse, fmt.Sprintf("decode response: %v", err))
		}
	}
	switch {
	case parsed.ListingURL != "":
		return Listed(parsed.ListingURL)
	case parsed.URL != "":
		return Listed(parsed.URL)
	default:
		return Listed(parsed.ID)
	}
}

func setAuth(req *http.Request, cfg Config) {
	if cfg.Credential == "" {
		return
	}
	switch cfg.AuthHeader {
	case AuthXAPIKey:
		req.Header.Set("X-API-Key", cfg.Credential)
	case AuthAPIKey:
		req.Header.Set("API-Key", cfg.Credential)
	default:
		req.Header.Set("Authorization", "Bearer "+cfg.Credential)
	}
}

// statusOutcome maps non-success status codes. ok is true for 2xx.
func statusOutcome(status int, body []byte) (Outcome, bool) {
	switch {
	case status >= 200 && status < 300:
		return Outcome{}, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Failed(KindAuthFailure, fmt.Sprintf("status %d", status)), false
	case status == http.StatusNotFound:
		return Failed(KindNotFound, fmt.Sprintf("status %d", status)), false
	case status == http.StatusTooManyRequests:
		return Failed(KindRateLimited, fmt.Sprintf("status %d", status)), false
	default:
		return Failed(KindUnexpectedResponse, fmt.Sprintf("status %d: %s", status, truncate(body, 200))), false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

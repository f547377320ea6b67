package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// HTTPClient implements RPCClient over HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint   string
	http       *http.Client
	headers    http.Header
	commitment string
	retry      backoff
	nextID     atomic.Uint64
}

// backoff is a capped exponential retry schedule.
type backoff struct {
	retries int
	initial time.Duration
	ceiling time.Duration
}

// delay returns the wait before retry n (1-based).
func (b backoff) delay(n int) time.Duration {
	d := b.initial
	for i := 1; i < n && d < b.ceiling; i++ {
		d *= 2
	}
	return min(d, b.ceiling)
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithMaxRetries sets how often a transient failure is retried. Zero leaves retry
// policy to the caller.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retry.retries = max(n, 0) }
}

// WithRetryDelay sets the first retry delay; later delays double.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.initial = d }
}

// WithMaxDelay caps the retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retry.ceiling = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = client }
}

// WithHeader adds a header to every request, e.g. the API key of a hosted RPC.
func WithHeader(key, value string) ClientOption {
	return func(c *HTTPClient) { c.headers.Set(key, value) }
}

// WithCommitment sets the commitment for reads and preflight. Default confirmed.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) { c.commitment = commitment }
}

// NewHTTPClient creates a Solana RPC client for endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: DefaultTimeout},
		headers:    make(http.Header),
		commitment: CommitmentConfirmed,
		retry: backoff{
			retries: DefaultMaxRetries,
			initial: DefaultRetryDelay,
			ceiling: DefaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.ceiling < c.retry.initial {
		c.retry.ceiling = c.retry.initial
	}
	return c
}

var _ RPCClient = (*HTTPClient)(nil)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// transientError is a failure worth retrying. wait overrides the backoff when the
// server sent Retry-After.
type transientError struct {
	err  error
	wait time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// call decodes the result of method into T. Transient failures are retried; when retries
// run out the error wraps ErrUnavailable. A JSON-RPC error is returned as *RPCError at once.
func call[T any](ctx context.Context, c *HTTPClient, method string, params ...any) (T, error) {
	var zero T

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return zero, fmt.Errorf("marshal %s: %w", method, err)
	}

	for attempt := 0; ; attempt++ {
		raw, err := c.roundTrip(ctx, body)
		if err == nil {
			var out T
			if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
				if err := json.Unmarshal(raw, &out); err != nil {
					return zero, fmt.Errorf("decode %s result: %w", method, err)
				}
			}
			return out, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return zero, err
		}
		if attempt >= c.retry.retries {
			return zero, fmt.Errorf("%w: %s after %d attempts: %w", ErrUnavailable, method, attempt+1, transient.err)
		}

		wait := c.retry.delay(attempt + 1)
		if transient.wait > 0 {
			wait = min(transient.wait, c.retry.ceiling)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// roundTrip posts body once and returns the raw result field.
func (c *HTTPClient) roundTrip(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{err: errors.New("rate limited (429)"), wait: retryAfter(resp.Header)}
	case resp.StatusCode >= 500:
		return nil, &transientError{err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, &transientError{err: fmt.Errorf("malformed response: %w", err)}
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (c *HTTPClient) commitmentConfig() map[string]any {
	return map[string]any{"commitment": c.commitment}
}

// GetBalance returns the lamport balance of an account.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	res, err := call[struct {
		Value uint64 `json:"value"`
	}](ctx, c, "getBalance", pubkey, c.commitmentConfig())
	return res.Value, err
}

// GetLatestBlockhash returns the most recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	res, err := call[struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}](ctx, c, "getLatestBlockhash", c.commitmentConfig())
	if err != nil {
		return nil, err
	}
	if res.Value.Blockhash == "" {
		return nil, errors.New("getLatestBlockhash: empty blockhash")
	}
	return &Blockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
	}, nil
}

// SendTransaction submits a signed transaction. Preflight simulation failures, such as
// an unfunded payer, come back as *RPCError.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	return call[string](ctx, c, "sendTransaction",
		base64.StdEncoding.EncodeToString(tx),
		map[string]any{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	)
}

// GetSignatureStatuses returns statuses in the order of signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	res, err := call[struct {
		Value []*struct {
			Slot               int64   `json:"slot"`
			Confirmations      *uint64 `json:"confirmations"`
			Err                any     `json:"err"`
			ConfirmationStatus string  `json:"confirmationStatus"`
		} `json:"value"`
	}](ctx, c, "getSignatureStatuses", signatures, map[string]any{"searchTransactionHistory": true})
	if err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(res.Value))
	for i, v := range res.Value {
		if v != nil {
			statuses[i] = &SignatureStatus{
				Slot:               v.Slot,
				Confirmations:      v.Confirmations,
				Err:                v.Err,
				ConfirmationStatus: v.ConfirmationStatus,
			}
		}
	}
	return statuses, nil
}

// GetAccountInfo returns the account at pubkey, or nil if it does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	res, err := call[struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"` // [payload, encoding]
			Executable bool     `json:"executable"`
			RentEpoch  uint64   `json:"rentEpoch"`
		} `json:"value"`
	}](ctx, c, "getAccountInfo", pubkey, map[string]any{
		"encoding":   "base64",
		"commitment": c.commitment,
	})
	if err != nil || res.Value == nil {
		return nil, err
	}

	info := &AccountInfo{
		Lamports:   res.Value.Lamports,
		Owner:      res.Value.Owner,
		Executable: res.Value.Executable,
		RentEpoch:  res.Value.RentEpoch,
	}
	if len(res.Value.Data) > 0 {
		info.Data = res.Value.Data[0]
	}
	return info, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for size bytes.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return call[uint64](ctx, c, "getMinimumBalanceForRentExemption", size, c.commitmentConfig())
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"solana-token-launcher/internal/solana"
)

// Provider kinds selectable in configuration.
const (
	KindHTTP    = "http"
	KindProbe   = "probe"
	KindOnchain = "onchain"
)

// Auth header styles for HTTP providers.
const (
	AuthBearer  = "bearer"
	AuthXAPIKey = "x-api-key"
	AuthAPIKey  = "api-key"
)

// Factory errors
var (
	ErrUnknownKind       = errors.New("unknown provider kind")
	ErrMissingID         = errors.New("provider requires id")
	ErrMissingEndpoint   = errors.New("provider requires endpoint")
	ErrMissingRPC        = errors.New("onchain provider requires a Solana RPC client")
	ErrUnknownAuthHeader = errors.New("unknown auth_header style")
)

// Config is the configuration of one provider in a platform chain.
type Config struct {
	ID                 string        `yaml:"id"`
	Kind               string        `yaml:"kind"`
	Endpoint           string        `yaml:"endpoint"`
	Credential         string        `yaml:"credential"`           // empty downgrades http providers to UNSUPPORTED
	AuthHeader         string        `yaml:"auth_header"`          // bearer | x-api-key | api-key
	Timeout            time.Duration `yaml:"timeout"`              // overrides the chain attempt timeout when shorter
	Idempotent         *bool         `yaml:"idempotent"`           // default true
	Public             bool          `yaml:"public"`               // http endpoint accepts unauthenticated submissions
	ListingURLTemplate string        `yaml:"listing_url_template"` // e.g. https://pump.fun/{mint}
}

// Deps are shared clients handed to providers built from config.
type Deps struct {
	HTTPClient *http.Client
	RPC        solana.RPCClient
}

// FromConfig creates a Provider from Config.
// Validates required parameters per provider kind.
func FromConfig(cfg Config, deps Deps) (Provider, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, ErrMissingID
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}

	switch cfg.Kind {
	case KindHTTP, "":
		return fromHTTPConfig(cfg, deps)
	case KindProbe:
		return fromProbeConfig(cfg, deps)
	case KindOnchain:
		return fromOnchainConfig(cfg, deps)
	default:
		return nil, fmt.Errorf("%w: %q (provider %s)", ErrUnknownKind, cfg.Kind, cfg.ID)
	}
}

func fromHTTPConfig(cfg Config, deps Deps) (*HTTPProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w (provider %s)", ErrMissingEndpoint, cfg.ID)
	}
	switch cfg.AuthHeader {
	case "", AuthBearer, AuthXAPIKey, AuthAPIKey:
	default:
		return nil, fmt.Errorf("%w: %q (provider %s)", ErrUnknownAuthHeader, cfg.AuthHeader, cfg.ID)
	}
	return NewHTTPProvider(cfg, deps.HTTPClient), nil
}

func fromProbeConfig(cfg Config, deps Deps) (*ProbeProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w (provider %s)", ErrMissingEndpoint, cfg.ID)
	}
	return NewProbeProvider(cfg, deps.HTTPClient), nil
}

func fromOnchainConfig(cfg Config, deps Deps) (*OnchainProvider, error) {
	if deps.RPC == nil {
		return nil, fmt.Errorf("%w (provider %s)", ErrMissingRPC, cfg.ID)
	}
	return NewOnchainProvider(cfg, deps.RPC), nil
}

func (c Config) idempotent() bool {
	return c.Idempotent == nil || *c.Idempotent
}

// expand substitutes {mint}, {symbol} and {token_id} placeholders.
func expand(template string, token Token) string {
	return strings.NewReplacer(
		"{mint}", token.MintAddress,
		"{symbol}", token.Symbol,
		"{token_id}", token.ID,
	).Replace(template)
}

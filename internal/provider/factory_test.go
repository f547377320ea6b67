package provider

import (
	"errors"
	"testing"
	"time"

	"solana-token-launcher/internal/solana/stub"
)

func TestFromConfig(t *testing.T) {
	deps := Deps{RPC: stub.NewRPCClient()}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"http", Config{ID: "a", Kind: KindHTTP, Endpoint: "http://x"}, nil},
		{"default kind is http", Config{ID: "a", Endpoint: "http://x"}, nil},
		{"probe", Config{ID: "a", Kind: KindProbe, Endpoint: "http://x/{mint}"}, nil},
		{"onchain", Config{ID: "a", Kind: KindOnchain}, nil},
		{"missing id", Config{Kind: KindHTTP, Endpoint: "http://x"}, ErrMissingID},
		{"missing endpoint", Config{ID: "a", Kind: KindHTTP}, ErrMissingEndpoint},
		{"probe missing endpoint", Config{ID: "a", Kind: KindProbe}, ErrMissingEndpoint},
		{"unknown kind", Config{ID: "a", Kind: "grpc"}, ErrUnknownKind},
		{"unknown auth", Config{ID: "a", Endpoint: "http://x", AuthHeader: "basic"}, ErrUnknownAuthHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromConfig(tt.cfg, deps)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig: %v", err)
			}
			if p.ID() != tt.cfg.ID {
				t.Errorf("expected id %s, got %s", tt.cfg.ID, p.ID())
			}
		})
	}
}

func TestFromConfig_OnchainRequiresRPC(t *testing.T) {
	_, err := FromConfig(Config{ID: "a", Kind: KindOnchain}, Deps{})
	if !errors.Is(err, ErrMissingRPC) {
		t.Fatalf("expected ErrMissingRPC, got %v", err)
	}
}

func TestFromConfig_TimeoutOverride(t *testing.T) {
	p, err := FromConfig(Config{ID: "a", Endpoint: "http://x", Timeout: 3 * time.Second}, Deps{})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	to, ok := p.(TimeoutOverride)
	if !ok {
		t.Fatal("expected TimeoutOverride")
	}
	if to.Timeout() != 3*time.Second {
		t.Errorf("expected 3s, got %s", to.Timeout())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewHTTPProvider(Config{ID: "a"}, nil)
	b := NewHTTPProvider(Config{ID: "b"}, nil)
	r.Register("pumpfun", a, b)
	r.Register("axiom")

	chain, ok := r.Chain("pumpfun")
	if !ok || len(chain) != 2 || chain[0].ID() != "a" || chain[1].ID() != "b" {
		t.Fatalf("unexpected chain %v", chain)
	}

	empty, ok := r.Chain("axiom")
	if !ok || len(empty) != 0 {
		t.Errorf("expected configured empty chain, got %v %v", empty, ok)
	}

	if _, ok := r.Chain("bullx"); ok {
		t.Error("bullx should not be configured")
	}

	if got := r.Platforms(); len(got) != 2 || got[0] != "axiom" {
		t.Errorf("unexpected platforms %v", got)
	}
}

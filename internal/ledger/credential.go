package ledger

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrMalformedCredential is returned when a credential cannot be decoded into a keypair.
var ErrMalformedCredential = errors.New("malformed wallet credential")

// WalletCredential is a decoded ed25519 signing keypair.
// It is never persisted, and every formatting path redacts the private half.
type WalletCredential struct {
	key ed25519.PrivateKey
}

// ParseCredential decodes a base58 wallet secret. Accepted forms are the 64-byte
// keypair exported by Solana wallets (seed followed by public key) and a bare 32-byte seed.
func ParseCredential(secret string) (*WalletCredential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedCredential)
	}

	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: not base58", ErrMalformedCredential)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return &WalletCredential{key: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		pub := raw[ed25519.SeedSize:]
		if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
			return nil, fmt.Errorf("%w: public key is not a curve point", ErrMalformedCredential)
		}
		key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], pub) {
			return nil, fmt.Errorf("%w: public key does not match seed", ErrMalformedCredential)
		}
		return &WalletCredential{key: key}, nil
	default:
		return nil, fmt.Errorf("%w: expected 32 or 64 bytes, got %d", ErrMalformedCredential, len(raw))
	}
}

// NewCredential wraps an existing ed25519 private key.
func NewCredential(key ed25519.PrivateKey) *WalletCredential {
	return &WalletCredential{key: append(ed25519.PrivateKey(nil), key...)}
}

// PublicKey returns the base58 wallet address.
func (c *WalletCredential) PublicKey() string {
	return base58.Encode(c.key[ed25519.SeedSize:])
}

// Sign signs message with the wallet key.
func (c *WalletCredential) Sign(message []byte) []byte {
	return ed25519.Sign(c.key, message)
}

func (c *WalletCredential) String() string {
	return "WalletCredential(" + c.PublicKey() + ", secret redacted)"
}

func (c *WalletCredential) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer.
func (c *WalletCredential) LogValue() slog.Value {
	return slog.GroupValue(slog.String("public_key", c.PublicKey()))
}

// Signer signs transaction messages.
type Signer interface {
	PublicKey() string
	Sign(message []byte) []byte
}

var (
	_ Signer         = (*WalletCredential)(nil)
	_ slog.LogValuer = (*WalletCredential)(nil)
	_ fmt.GoStringer = (*WalletCredential)(nil)
)

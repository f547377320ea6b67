package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputePlaceholderMint computes a base58 address-shaped placeholder for simulated mints.
// Formula: base58(SHA256(name|symbol|nonce))
// The result has the same alphabet and length range as a real Solana address but is
// never a valid on-chain mint.
func ComputePlaceholderMint(name, symbol string, nonce int64) string {
	data := fmt.Sprintf("%s|%s|%d", name, symbol, nonce)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputePlaceholderSignature derives a simulated transaction id from a placeholder mint.
func ComputePlaceholderSignature(mint string) string {
	hash := sha256.Sum256([]byte("simulated|" + mint))
	return "simulated_" + base58.Encode(hash[:16])
}

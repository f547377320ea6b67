package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeListingKey computes a deterministic idempotency key for one listing submission.
// Formula: SHA256(token_id|platform|provider_id|mint)
// Returns hex-encoded hash (64 characters).
//
// The key is stable across retries of the same provider, so an upstream that honours
// Idempotency-Key never creates a second listing for the same token.
func ComputeListingKey(
	tokenID string,
	platform string,
	providerID string,
	mint string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		tokenID,
		platform,
		providerID,
		mint,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

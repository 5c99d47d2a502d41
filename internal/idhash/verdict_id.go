package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeVerdictID computes a deterministic verdict_id using SHA256.
// Formula: SHA256(mint|vector_hash|model_fingerprint|classified_at)
// An empty fingerprint denotes rule-based mode.
// Returns hex-encoded hash (64 characters).
func ComputeVerdictID(
	mint string,
	vectorHash string,
	modelFingerprint string,
	classifiedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		mint,
		vectorHash,
		modelFingerprint,
		classifiedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

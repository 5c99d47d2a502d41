package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// ComputeVectorHash computes a deterministic hash of a feature vector.
// Formula: SHA256 over the little-endian IEEE-754 bits of each element.
// Returns hex-encoded hash (64 characters).
func ComputeVectorHash(features []float32) string {
	buf := make([]byte, 4*len(features))
	for i, f := range features {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	hash := sha256.Sum256(buf)
	return hex.EncodeToString(hash[:])
}

// ComputeArtifactFingerprint hashes raw model artifact bytes.
// Returns the first 16 hex characters of SHA256(data).
func ComputeArtifactFingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])[:16]
}

// Package hasher computes the canonical SHA-256 digests fixed at seal time.
// Pure functions, no state, no I/O.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadHash returns the hex SHA-256 digest of the raw payload bytes.
// An empty payload hashes to the digest of the empty string, not an error.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MetadataHash returns the hex SHA-256 digest of the canonical JSON encoding
// of metadata. Canonicalization serializes keys in sorted order, so
// semantically identical metadata hashes identically regardless of field
// insertion order.
func MetadataHash(metadata map[string]any) (string, error) {
	canonical, err := CanonicalJSON(metadata)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON encodes v deterministically. encoding/json already emits map
// keys in sorted order; nested maps are normalized by a marshal/unmarshal
// round trip so struct field order never influences the digest.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize metadata: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("canonicalize metadata: %w", err)
	}
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonicalize metadata: %w", err)
	}
	return canonical, nil
}

// Package checksum computes content digests used as snapshot revisions.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Revision returns a digest of v's canonical JSON encoding. It is used as an
// ETag for snapshot projections; two identical snapshots always produce the
// same revision. Returns "" when v cannot be encoded.
func Revision(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return Sum(raw)
}

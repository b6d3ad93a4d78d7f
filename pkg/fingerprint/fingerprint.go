// Package fingerprint computes the content digests used to detect changed
// skill files between scans.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Of returns the lowercase hex SHA-256 digest of content.
func Of(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// OfString is Of for string content.
func OfString(content string) string {
	return Of([]byte(content))
}

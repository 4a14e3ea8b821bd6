package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey creates a SHA256 hash over the given parts.
// This is useful for creating consistent, safe keys for Redis.
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		// Separator so ("ab","c") and ("a","bc") differ.
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

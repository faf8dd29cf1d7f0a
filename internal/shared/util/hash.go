package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns the hex sha256 of s, safe for file names and lock keys.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

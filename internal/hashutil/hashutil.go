// Package hashutil implements the `hash(x)` intrinsic's digest.
package hashutil

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hex returns the blake2b-256 hex digest of s, used to content-address
// the textual rendering of an arbitrary L3 value.
func Hex(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Package idgen wraps UUID generation for the `uuid()` intrinsic.
package idgen

import "github.com/google/uuid"

// New returns a random UUIDv4 string.
func New() string {
	return uuid.New().String()
}

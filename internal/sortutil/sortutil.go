// Package sortutil implements the `natural_sort(v)` intrinsic.
package sortutil

import (
	"sort"

	"github.com/maruel/natural"
)

// Strings returns a new slice of ss sorted in natural (human) order,
// where embedded digit runs compare numerically rather than lexically
// (so "item2" sorts before "item10").
func Strings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Slice(out, func(i, j int) bool { return natural.Less(out[i], out[j]) })
	return out
}

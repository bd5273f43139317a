// Package humanizefmt implements the `humanize_bytes`/`humanize_time`
// intrinsics' rendering.
package humanizefmt

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes renders n as a `"1.2 MB"`-style byte count.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// RelativeSeconds renders n seconds ago as a relative-time string, e.g.
// "3 hours ago".
func RelativeSeconds(n int64) string {
	return humanize.RelTime(time.Now().Add(-time.Duration(n)*time.Second), time.Now(), "ago", "from now")
}

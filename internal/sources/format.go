// Package sources holds helpers shared by the concrete dashboard sources.
package sources

import (
	"math"
	"strconv"
)

// FormatCount abbreviates large counters for a narrow panel: 950, 12.3k, 1.2M.
func FormatCount(n float64) string {
	switch {
	case math.IsNaN(n) || n < 0:
		return "0"
	case n >= 1_000_000:
		return strconv.FormatFloat(n/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(n/1_000, 'f', 1, 64) + "k"
	default:
		return strconv.FormatInt(int64(n), 10)
	}
}

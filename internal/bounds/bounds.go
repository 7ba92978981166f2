// Package bounds contains overflow-checked arithmetic for cursor math.
package bounds

import "math"

// AddInt64 adds a and b, returning ok = false when the result would overflow int64.
func AddInt64(a, b int64) (int64, bool) {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return 0, false
	case b < 0 && a < math.MinInt64-b:
		return 0, false
	default:
		return a + b, true
	}
}

// AddInt adds a and b, returning ok = false when the result would overflow int.
func AddInt(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Room returns how many of want bytes fit in [pos, limit).
// It returns 0 when pos is at or past limit, or when want is not positive.
func Room(pos, limit int64, want int) int {
	if want <= 0 || pos >= limit {
		return 0
	}

	left := limit - pos
	if int64(want) < left {
		return want
	}

	return int(left)
}

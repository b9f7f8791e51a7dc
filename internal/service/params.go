package service

import "strconv"

const (
	// DefaultSinceDays is the lookback window applied when none is given.
	DefaultSinceDays = 30

	// DefaultLimit is the row limit applied when none is given.
	DefaultLimit = 10

	// MaxLimit caps the row limit for report and popular-item queries.
	MaxLimit = 100

	// MaxShopperLimit caps the row limit for active-shopper queries.
	MaxShopperLimit = 1200

	// AllWindow is the cache-key token for an unbounded lookback window.
	AllWindow = "all"
)

// NormalizeSince clamps a lookback window. Zero or negative means all
// time and normalizes to 0 so every unbounded request shares one cache
// entry.
func NormalizeSince(sinceDays int) int {
	if sinceDays <= 0 {
		return 0
	}
	return sinceDays
}

// NormalizeLimit clamps a row limit into [1, MaxLimit], defaulting to
// DefaultLimit when non-positive.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeShopperLimit clamps an active-shopper row limit. Non-positive
// means unbounded and normalizes to 0.
func NormalizeShopperLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxShopperLimit {
		return MaxShopperLimit
	}
	return limit
}

// sinceToken renders a normalized window for use in a cache key.
func sinceToken(sinceDays int) string {
	if sinceDays <= 0 {
		return AllWindow
	}
	return strconv.Itoa(sinceDays)
}

// limitToken renders a normalized limit for use in a cache key. Zero
// (unbounded) renders as the all-token so it cannot collide with a
// numeric limit.
func limitToken(limit int) string {
	if limit <= 0 {
		return AllWindow
	}
	return strconv.Itoa(limit)
}

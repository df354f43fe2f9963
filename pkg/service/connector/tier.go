package connector

import "golang.org/x/time/rate"

// DefaultRateLimitTier is used when the credential's tier is unknown
const DefaultRateLimitTier = 2

// maxConcurrency caps the channel fan-out regardless of tier
const maxConcurrency = 8

// tierBudgets maps a credential's rate-limit tier to a requests-per-second
// ceiling. The upstream only exposes the tier as an integer; this mapping is
// ours and intentionally conservative for the low tiers.
var tierBudgets = map[int]rate.Limit{
	1: 1,
	2: 5,
	3: 20,
	4: 50,
}

// RateLimitForTier returns the requests-per-second ceiling for a tier
func RateLimitForTier(tier int) rate.Limit {
	if budget, ok := tierBudgets[tier]; ok {
		return budget
	}
	return tierBudgets[DefaultRateLimitTier]
}

// ConcurrencyForTier derives the channel fan-out cap from a tier so the
// connector cannot overwhelm the upstream API
func ConcurrencyForTier(tier int) int {
	if tier < 1 {
		tier = DefaultRateLimitTier
	}
	n := tier * 2
	if n > maxConcurrency {
		n = maxConcurrency
	}
	return n
}

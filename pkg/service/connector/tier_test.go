package connector_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/service/connector"
	"golang.org/x/time/rate"
)

func TestRateLimitForTier(t *testing.T) {
	gt.Value(t, connector.RateLimitForTier(1)).Equal(rate.Limit(1))
	gt.Value(t, connector.RateLimitForTier(2)).Equal(rate.Limit(5))
	gt.Value(t, connector.RateLimitForTier(3)).Equal(rate.Limit(20))
	gt.Value(t, connector.RateLimitForTier(4)).Equal(rate.Limit(50))

	// Unknown tiers fall back to the default budget
	gt.Value(t, connector.RateLimitForTier(0)).Equal(connector.RateLimitForTier(connector.DefaultRateLimitTier))
	gt.Value(t, connector.RateLimitForTier(99)).Equal(connector.RateLimitForTier(connector.DefaultRateLimitTier))
}

func TestConcurrencyForTier(t *testing.T) {
	gt.Value(t, connector.ConcurrencyForTier(1)).Equal(2)
	gt.Value(t, connector.ConcurrencyForTier(2)).Equal(4)
	gt.Value(t, connector.ConcurrencyForTier(3)).Equal(6)
	gt.Value(t, connector.ConcurrencyForTier(4)).Equal(8)

	// The fan-out never exceeds the global cap
	gt.Value(t, connector.ConcurrencyForTier(10)).Equal(8)

	// Nonsense tiers behave like the default
	gt.Value(t, connector.ConcurrencyForTier(0)).Equal(connector.ConcurrencyForTier(connector.DefaultRateLimitTier))
	gt.Value(t, connector.ConcurrencyForTier(-1)).Equal(connector.ConcurrencyForTier(connector.DefaultRateLimitTier))
}

package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func assertAllowed(t *testing.T, l Limiter, key string, expected bool) {
	allowed, err := l.Allow(key)
	require.NoError(t, err)
	assert.Equal(t, expected, allowed, key)
}

func TestNoLimiter(t *testing.T) {
	for _, perSecond := range []float64{0, -1} {
		l := NewLimiter(perSecond)
		for i := 0; i < 1000; i++ {
			assertAllowed(t, l, "", true)
		}
	}
}

func TestLocalRateLimiter_PerKey(t *testing.T) {
	l, err := NewLocalRateLimiter(rate.Limit(2), 16)
	require.NoError(t, err)

	for _, key := range []string{"pool-a", "pool-b"} {
		assertAllowed(t, l, key, true)
		assertAllowed(t, l, key, true)
		assertAllowed(t, l, key, false)
	}
}

func TestLocalRateLimiter_FractionalRate(t *testing.T) {
	l := NewLimiter(0.1)

	assertAllowed(t, l, "pool", true)
	assertAllowed(t, l, "pool", false)
}

func TestLocalRateLimiter_EvictionResetsBucket(t *testing.T) {
	l, err := NewLocalRateLimiter(rate.Limit(0.1), 1)
	require.NoError(t, err)

	assertAllowed(t, l, "pool-a", true)
	assertAllowed(t, l, "pool-a", false)

	// pool-b evicts pool-a, whose next bucket starts full.
	assertAllowed(t, l, "pool-b", true)
	assertAllowed(t, l, "pool-a", true)
}

func TestNewLocalRateLimiter_InvalidSize(t *testing.T) {
	_, err := NewLocalRateLimiter(rate.Limit(1), 0)
	assert.Error(t, err)
}

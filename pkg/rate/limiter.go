// Package rate limits operations per key, such as withdrawals per pool.
package rate

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds how many per-key buckets a local limiter tracks. The
// least recently used bucket is dropped first, which only ever resets it to
// a full burst.
const DefaultMaxKeys = 10_000

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// NewLocalRateLimiter allows limit operations per second for each key, with
// a burst of at least one so fractional rates still admit an operation.
func NewLocalRateLimiter(limit rate.Limit, maxKeys int) (Limiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, err
	}

	return &localRateLimiter{
		limit:   limit,
		burst:   max(1, int(math.Ceil(float64(limit)))),
		buckets: buckets,
	}, nil
}

// NewLimiter returns a limiter allowing perSecond operations per key. A
// non-positive rate disables limiting.
func NewLimiter(perSecond float64) Limiter {
	if perSecond <= 0 {
		return NoLimiter{}
	}

	l, err := NewLocalRateLimiter(rate.Limit(perSecond), DefaultMaxKeys)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return l
}

func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, bucket)
	}
	l.mu.Unlock()

	return bucket.Allow(), nil
}

// NoLimiter never limits operations.
type NoLimiter struct{}

func (NoLimiter) Allow(string) (bool, error) {
	return true, nil
}

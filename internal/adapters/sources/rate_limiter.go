package sources

import (
	"math/rand"
	"sync"
	"time"
)

// RateLimiter tracks the last call time per source and enforces a minimum
// delay plus a jittered random delay between calls to the same source.
// It is shared across concurrent valuation requests and must be
// constructed once at process start.
type RateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	jitter   time.Duration
	lastCall map[string]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a per-source rate limiter
func NewRateLimiter(minDelay, jitter time.Duration) *RateLimiter {
	return &RateLimiter{
		minDelay: minDelay,
		jitter:   jitter,
		lastCall: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether the source may be called now. When allowed, the
// call is recorded; the caller is expected to proceed with the fetch.
// A denied source is skipped for this aggregation pass, not waited on.
func (l *RateLimiter) Allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	last, seen := l.lastCall[source]
	if seen {
		required := l.minDelay
		if l.jitter > 0 {
			required += time.Duration(rand.Int63n(int64(l.jitter)))
		}
		if now.Sub(last) < required {
			return false
		}
	}

	l.lastCall[source] = now
	return true
}

// Reset forgets the call history for a source
func (l *RateLimiter) Reset(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lastCall, source)
}

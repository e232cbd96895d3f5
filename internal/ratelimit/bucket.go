package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket is a token-bucket limiter built on golang.org/x/time/rate.
// It smooths admissions across window boundaries: a scope's tokens refill at
// limit/window per second with a burst of limit, so the 2x-limit edge burst
// the fixed-window algorithm permits cannot occur. Provided as the explicit
// alternative behind the Limiter interface; the fixed window stays the
// default.
type Bucket struct {
	window time.Duration

	mu          sync.Mutex
	scopes      map[string]*bucketState
	lastCleanup time.Time
}

type bucketState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewBucket creates a token-bucket limiter refilling over the given window.
func NewBucket(window time.Duration) *Bucket {
	return &Bucket{
		window:      window,
		scopes:      make(map[string]*bucketState),
		lastCleanup: time.Now(),
	}
}

// Acquire requests admission for scope.
func (b *Bucket) Acquire(scope string, limit int) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	// Periodic cleanup of stale scopes
	if now.Sub(b.lastCleanup) > cleanupInterval {
		for k, s := range b.scopes {
			if now.Sub(s.lastSeen) > staleThreshold {
				delete(b.scopes, k)
			}
		}
		b.lastCleanup = now
	}

	s, exists := b.scopes[scope]
	if !exists {
		refill := rate.Limit(float64(limit) / b.window.Seconds())
		s = &bucketState{limiter: rate.NewLimiter(refill, limit)}
		b.scopes[scope] = s
	}
	s.lastSeen = now

	r := s.limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return Decision{RetryAfter: delay}
	}
	return Decision{OK: true}
}

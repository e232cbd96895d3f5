package ratelimit

import (
	"sync"
	"time"
)

const (
	cleanupInterval = 5 * time.Minute
	staleThreshold  = 10 * time.Minute
)

// FixedWindow is a fixed-window counter limiter.
// Each scope tracks {window_start, count}; a request arriving in a new window
// resets the count, a request within the window is admitted while count is
// below the limit, and otherwise denied with retry_after = window_start +
// window - now. Cleanup of stale scopes happens inline during Acquire calls.
type FixedWindow struct {
	window time.Duration

	mu          sync.Mutex
	scopes      map[string]*windowState
	lastCleanup time.Time

	now func() time.Time // injectable clock for tests
}

// windowState holds the current window for a single scope.
type windowState struct {
	start time.Time
	count int
}

// NewFixedWindow creates a limiter with the given window length.
func NewFixedWindow(window time.Duration) *FixedWindow {
	return &FixedWindow{
		window:      window,
		scopes:      make(map[string]*windowState),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Acquire requests admission for scope. Exactly limit admissions succeed per
// window; the next request is denied with a positive retry-after.
func (fw *FixedWindow) Acquire(scope string, limit int) Decision {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()

	// Periodic cleanup of scopes idle for several windows
	if now.Sub(fw.lastCleanup) > cleanupInterval {
		for k, s := range fw.scopes {
			if now.Sub(s.start) > staleThreshold+fw.window {
				delete(fw.scopes, k)
			}
		}
		fw.lastCleanup = now
	}

	s, exists := fw.scopes[scope]
	if !exists || now.Sub(s.start) >= fw.window {
		// New window: reset count and advance window_start
		s = &windowState{start: now}
		fw.scopes[scope] = s
	}

	if s.count < limit {
		s.count++
		return Decision{OK: true}
	}

	return Decision{RetryAfter: s.start.Add(fw.window).Sub(now)}
}

// count returns the current window count for scope. Test hook.
func (fw *FixedWindow) count(scope string) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if s, ok := fw.scopes[scope]; ok {
		return s.count
	}
	return 0
}

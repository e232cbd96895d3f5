// Package ratelimit provides admission control for tool invocations.
//
// The default limiter is a fixed-window counter per scope: O(1) per check,
// no historical event log, at the cost of allowing brief bursts at window
// boundaries. Deployments that cannot tolerate edge bursts can swap in the
// token-bucket limiter (bucket.go) behind the same interface.
//
// A denial fails immediately with a retry-after hint; there is no queuing or
// backpressure layer.
package ratelimit

import "time"

// Decision is the admission outcome for one scope.
type Decision struct {
	// OK reports whether the request was admitted.
	OK bool

	// RetryAfter hints when the caller may try again. Positive exactly when
	// the request was denied.
	RetryAfter time.Duration
}

// Limiter grants or denies admission for a scope. Distinct scopes (different
// tools, or tool+caller pairs) are independent: a denial on one scope never
// affects another.
//
// Implementations must be safe for concurrent use; the counter update for a
// scope is atomic, so no more than limit requests are admitted per window.
type Limiter interface {
	Acquire(scope string, limit int) Decision
}

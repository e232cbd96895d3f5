// Package cache provides result caching for cacheable tools.
//
// Entries map a deterministic key (tool identity + an allow-listed subset of
// parameters, see Key) to a serialized result with a per-entry TTL. The
// backend is pluggable behind the Cache interface: a local in-memory map with
// a periodic expiry sweep, or an external redis store. Callers must not
// depend on backend-specific behavior.
//
// Get and Set are independent, idempotent operations and tolerate races: a
// lost update only causes a redundant recomputation, never corruption.
// Entries are replaced wholesale on recomputation, never partially updated.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract.
type Cache interface {
	// Get returns the non-expired value for key, or found=false on a miss.
	// Backend I/O failures are returned as errors and treated as misses by
	// the pipeline.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key for ttl. The entry expires when
	// now > created_at + ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases backend resources.
	Close() error
}

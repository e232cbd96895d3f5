package metrics

import (
	"context"
	"time"
)

// RecordStore is the persistence contract for the invocation record log.
//
// Append must not share a lock with the cache layer or the rate limiter; it
// is an independent log. Prune deletes only records strictly older than the
// cutoff and must not block concurrent reads (sqlite WAL, postgres MVCC, and
// the memory store's copy-on-read all satisfy this).
type RecordStore interface {
	// Append persists one record.
	Append(ctx context.Context, rec Record) error

	// Query returns all records for tool with StartTime >= since,
	// ordered by StartTime ascending. An empty tool matches every tool.
	Query(ctx context.Context, tool string, since time.Time) ([]Record, error)

	// Tools returns the distinct tool names with at least one record since
	// the given time.
	Tools(ctx context.Context, since time.Time) ([]string, error)

	// Prune deletes records with StartTime strictly before cutoff and
	// returns the number removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}

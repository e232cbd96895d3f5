// Package metrics provides the invocation record log and the aggregation
// layer on top of it.
//
// The record log is the only persisted state in the system: one immutable
// record per completed invocation, appended by the Recorder, queryable by
// tool and time range, deleted only by retention pruning. Aggregates
// (percentiles, error rate, cache-hit rate) are derived on demand and never
// stored.
//
// Backends are pluggable behind RecordStore: in-memory (tests, default),
// sqlite (single-node durability), postgres (shared deployments).
package metrics

import (
	"time"

	"github.com/google/uuid"
)

// Record is one immutable invocation record. Created exactly once per
// completed invocation; never updated after creation.
type Record struct {
	ID         string            `json:"id"`
	Tool       string            `json:"tool_name"`
	StartTime  time.Time         `json:"start_time"`
	DurationMS int64             `json:"duration_ms"`
	Success    bool              `json:"success"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	CacheHit   bool              `json:"cache_hit"`
	MockMode   bool              `json:"mock_mode"`
	MemoryMB   float64           `json:"memory_mb"`
	CPUPct     float64           `json:"cpu_pct"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

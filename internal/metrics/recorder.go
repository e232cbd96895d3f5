package metrics

import (
	"context"
	"runtime"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
)

// Recorder appends invocation records to the store. It is synchronous and
// best-effort: a persistence failure is logged as a RecordingFailure and
// never blocks or fails the caller's result.
type Recorder struct {
	store  RecordStore
	logger log.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store RecordStore, logger log.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists one invocation record. An empty ID is filled in here so
// callers only describe what happened.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if err := r.store.Append(ctx, rec); err != nil {
		r.logger.Warn("recording failure",
			"kind", "RecordingFailure",
			"tool", rec.Tool,
			"error", err,
		)
	}
}

// SampleMemoryMB returns the process heap allocation in megabytes, used as
// the resource-usage figure on invocation records.
func SampleMemoryMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}

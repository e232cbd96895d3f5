package metrics

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is the in-process record store. Reads copy the matching
// records under a read lock, so pruning never blocks or corrupts a
// concurrent query.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements RecordStore.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// Query implements RecordStore.
func (s *MemoryStore) Query(_ context.Context, tool string, since time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if r.StartTime.Before(since) {
			continue
		}
		if tool != "" && r.Tool != tool {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out, nil
}

// Tools implements RecordStore.
func (s *MemoryStore) Tools(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.records {
		if r.StartTime.Before(since) {
			continue
		}
		if _, ok := seen[r.Tool]; !ok {
			seen[r.Tool] = struct{}{}
			out = append(out, r.Tool)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Prune implements RecordStore.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, r := range s.records {
		if r.StartTime.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

// Close implements RecordStore.
func (s *MemoryStore) Close() error { return nil }

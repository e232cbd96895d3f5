package metrics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
)

// Service is the read side of the metrics store: per-tool aggregates,
// catalog-wide views, and retention pruning. It runs against the recorded
// log asynchronously and is fully decoupled from the synchronous request
// path.
type Service struct {
	store     RecordStore
	retention time.Duration
	logger    log.Logger

	now func() time.Time // injectable clock for tests
}

// NewService creates a metrics service with the given retention horizon.
func NewService(store RecordStore, retentionDays int, logger log.Logger) *Service {
	return &Service{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// windowStart converts a day count into the query cutoff.
func (s *Service) windowStart(days int) time.Time {
	return s.now().Add(-time.Duration(days) * 24 * time.Hour)
}

// Records returns the raw records for tool within the last days.
// An empty tool matches every tool.
func (s *Service) Records(ctx context.Context, tool string, days int) ([]Record, error) {
	return s.store.Query(ctx, tool, s.windowStart(days))
}

// Metrics returns the aggregate for one tool over the last days.
// A tool with no records yields a zero aggregate (TotalRequests == 0).
func (s *Service) Metrics(ctx context.Context, tool string, days int) (Aggregate, error) {
	records, err := s.store.Query(ctx, tool, s.windowStart(days))
	if err != nil {
		return Aggregate{}, fmt.Errorf("querying records for %q: %w", tool, err)
	}
	return ComputeAggregate(tool, records), nil
}

// AllMetrics returns aggregates for every tool with at least one record in
// the window, sorted by tool name.
func (s *Service) AllMetrics(ctx context.Context, days int) ([]Aggregate, error) {
	since := s.windowStart(days)

	tools, err := s.store.Tools(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	out := make([]Aggregate, 0, len(tools))
	for _, tool := range tools {
		records, err := s.store.Query(ctx, tool, since)
		if err != nil {
			return nil, fmt.Errorf("querying records for %q: %w", tool, err)
		}
		out = append(out, ComputeAggregate(tool, records))
	}
	return out, nil
}

// Slowest returns up to limit aggregates ordered by P95 latency, slowest
// first.
func (s *Service) Slowest(ctx context.Context, days, limit int) ([]Aggregate, error) {
	all, err := s.AllMetrics(ctx, days)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(all, func(a, b Aggregate) int {
		// Descending by P95
		switch {
		case a.P95 > b.P95:
			return -1
		case a.P95 < b.P95:
			return 1
		}
		return 0
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Prune deletes records strictly older than the retention horizon and
// returns the number removed. Records within the horizon are never touched.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)

	removed, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if removed > 0 {
		s.logger.Info("pruned invocation records",
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
	return removed, nil
}

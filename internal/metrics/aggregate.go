package metrics

import (
	"math"
	"slices"
)

// Aggregate is the derived per-tool statistic set over a time window.
// Computed on demand from records; never stored.
type Aggregate struct {
	Tool          string  `json:"tool_name"`
	TotalRequests int     `json:"total_requests"`
	SuccessCount  int     `json:"success_count"`
	ErrorCount    int     `json:"error_count"`
	ErrorRate     float64 `json:"error_rate"`
	P50           int64   `json:"p50_ms"`
	P95           int64   `json:"p95_ms"`
	P99           int64   `json:"p99_ms"`
	AvgMemoryMB   float64 `json:"avg_memory_mb"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
}

// Percentile selects the nearest-rank percentile from sorted latencies:
// the value at 0-indexed rank ceil(p*n)-1.
//
// Nearest-rank is deterministic and avoids interpolation ambiguity; alternate
// interpolation schemes produce materially different P95 values on small
// samples, so the method is part of the contract. For n=1 every percentile is
// the single value.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(n))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return sorted[rank]
}

// ComputeAggregate derives the statistic set for one tool's records.
// The zero Aggregate (TotalRequests == 0) means no data in the window.
func ComputeAggregate(tool string, records []Record) Aggregate {
	agg := Aggregate{Tool: tool, TotalRequests: len(records)}
	if len(records) == 0 {
		return agg
	}

	latencies := make([]int64, 0, len(records))
	var memSum float64
	var cacheHits int
	for _, r := range records {
		latencies = append(latencies, r.DurationMS)
		memSum += r.MemoryMB
		if r.Success {
			agg.SuccessCount++
		} else {
			agg.ErrorCount++
		}
		if r.CacheHit {
			cacheHits++
		}
	}
	slices.Sort(latencies)

	n := float64(len(records))
	agg.ErrorRate = float64(agg.ErrorCount) / n
	agg.P50 = Percentile(latencies, 0.50)
	agg.P95 = Percentile(latencies, 0.95)
	agg.P99 = Percentile(latencies, 0.99)
	agg.AvgMemoryMB = memSum / n
	agg.CacheHitRate = float64(cacheHits) / n
	return agg
}

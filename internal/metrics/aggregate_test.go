package metrics

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile_SingleValue(t *testing.T) {
	// For n=1 every percentile is the single value
	assert.Equal(t, int64(42), Percentile([]int64{42}, 0.50))
	assert.Equal(t, int64(42), Percentile([]int64{42}, 0.95))
	assert.Equal(t, int64(42), Percentile([]int64{42}, 0.99))
}

func TestPercentile_Empty(t *testing.T) {
	assert.Equal(t, int64(0), Percentile(nil, 0.95))
}

func TestPercentile_SpecScenario(t *testing.T) {
	// [100,100,100,100,100,500] => P95 at rank ceil(0.95*6)-1 = 5, the 6th value
	latencies := []int64{100, 100, 100, 100, 100, 500}
	assert.Equal(t, int64(500), Percentile(latencies, 0.95))
	assert.Equal(t, int64(100), Percentile(latencies, 0.50))
}

func TestPercentile_NearestRankOnHundredValues(t *testing.T) {
	latencies := make([]int64, 100)
	for i := range latencies {
		latencies[i] = int64(i + 1) // 1..100
	}

	// ceil(0.95*100)-1 = 94 => value 95
	assert.Equal(t, int64(95), Percentile(latencies, 0.95))
	assert.Equal(t, int64(50), Percentile(latencies, 0.50))
	assert.Equal(t, int64(99), Percentile(latencies, 0.99))
}

func TestPercentile_MatchesNearestRankOnRandomSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 5, 10, 33, 100} {
		latencies := make([]int64, n)
		for i := range latencies {
			latencies[i] = rng.Int63n(10_000)
		}
		slices.Sort(latencies)

		for _, p := range []float64{0.50, 0.95, 0.99} {
			rank := int(math.Ceil(p*float64(n))) - 1
			assert.Equal(t, latencies[rank], Percentile(latencies, p),
				"n=%d p=%.2f", n, p)
		}
	}
}

func TestComputeAggregate(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Tool: "Y", StartTime: start, DurationMS: 100, Success: true, MemoryMB: 10, CacheHit: true},
		{Tool: "Y", StartTime: start, DurationMS: 100, Success: true, MemoryMB: 20},
		{Tool: "Y", StartTime: start, DurationMS: 100, Success: true, MemoryMB: 30},
		{Tool: "Y", StartTime: start, DurationMS: 100, Success: false, ErrorKind: "ExecutionError", MemoryMB: 40},
		{Tool: "Y", StartTime: start, DurationMS: 100, Success: true, MemoryMB: 50},
		{Tool: "Y", StartTime: start, DurationMS: 500, Success: true, MemoryMB: 60, CacheHit: true},
	}

	agg := ComputeAggregate("Y", records)

	assert.Equal(t, 6, agg.TotalRequests)
	assert.Equal(t, 5, agg.SuccessCount)
	assert.Equal(t, 1, agg.ErrorCount)
	assert.InDelta(t, 1.0/6.0, agg.ErrorRate, 1e-9)
	assert.Equal(t, int64(100), agg.P50)
	assert.Equal(t, int64(500), agg.P95)
	assert.Equal(t, int64(500), agg.P99)
	assert.InDelta(t, 35.0, agg.AvgMemoryMB, 1e-9)
	assert.InDelta(t, 2.0/6.0, agg.CacheHitRate, 1e-9)
}

func TestComputeAggregate_NoRecords(t *testing.T) {
	agg := ComputeAggregate("empty", nil)

	assert.Equal(t, 0, agg.TotalRequests)
	assert.Equal(t, int64(0), agg.P95)
	assert.Equal(t, 0.0, agg.ErrorRate, "no division by zero on empty windows")
}

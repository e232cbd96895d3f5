package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		ErrorRate: 0.10,
		SlowMS:    5000,
		SlowShare: 0.10,
		MemoryMB:  500,
	}
}

func newTestDetector(t *testing.T) (*Detector, *metrics.MemoryStore, time.Time) {
	t.Helper()

	store := metrics.NewMemoryStore()
	svc := metrics.NewService(store, 30, log.NewNop())
	det := NewDetector(svc, defaultThresholds(), log.NewNop())

	// Recent enough to fall inside any scan window
	start := time.Now().Add(-time.Hour)
	return det, store, start
}

func appendN(t *testing.T, store *metrics.MemoryStore, tool string, start time.Time, n int, durMS int64, success bool, memMB float64) {
	t.Helper()
	for range n {
		err := store.Append(context.Background(), metrics.Record{
			ID:         metrics.NewID(),
			Tool:       tool,
			StartTime:  start,
			DurationMS: durMS,
			Success:    success,
			MemoryMB:   memMB,
		})
		require.NoError(t, err)
	}
}

func findByRule(findings []Finding, rule string) (Finding, bool) {
	for _, f := range findings {
		if f.RuleID == rule {
			return f, true
		}
	}
	return Finding{}, false
}

func TestDetector_ErrorRateBreach(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "flaky", start, 8, 100, true, 10)
	appendN(t, store, "flaky", start, 2, 100, false, 10)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	f, ok := findByRule(findings, RuleErrorRate)
	require.True(t, ok, "20%% error rate must breach the 10%% threshold")
	assert.Equal(t, "flaky", f.Tool)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.InDelta(t, 0.2, f.MetricValue, 1e-9)
	assert.InDelta(t, 0.1, f.Threshold, 1e-9)
}

func TestDetector_ErrorRateAtThresholdIsNotABreach(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "edge", start, 9, 100, true, 10)
	appendN(t, store, "edge", start, 1, 100, false, 10)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	_, ok := findByRule(findings, RuleErrorRate)
	assert.False(t, ok, "exactly at the threshold does not fire")
}

func TestDetector_SlowShareBreach(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "sluggish", start, 8, 100, true, 10)
	appendN(t, store, "sluggish", start, 2, 6000, true, 10)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	f, ok := findByRule(findings, RuleSlowShare)
	require.True(t, ok)
	assert.Equal(t, SeverityMedium, f.Severity)
	assert.InDelta(t, 0.2, f.MetricValue, 1e-9)
}

func TestDetector_SlowExactlyAtLimitIsNotSlow(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "borderline", start, 10, 5000, true, 10)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	_, ok := findByRule(findings, RuleSlowShare)
	assert.False(t, ok, "a request at exactly the slow limit is not slow")
}

func TestDetector_MemoryBreach(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "hungry", start, 5, 100, true, 600)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	f, ok := findByRule(findings, RuleMemory)
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.InDelta(t, 600, f.MetricValue, 1e-9)
}

func TestDetector_MultipleRulesFireForOneTool(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "broken", start, 5, 6000, false, 600)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)

	rules := make([]string, 0, len(findings))
	for _, f := range findings {
		rules = append(rules, f.RuleID)
	}
	assert.ElementsMatch(t, []string{RuleErrorRate, RuleSlowShare, RuleMemory}, rules)
}

func TestDetector_HealthyToolProducesNoFindings(t *testing.T) {
	det, store, start := newTestDetector(t)
	appendN(t, store, "healthy", start, 100, 50, true, 10)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDetector_EmptyStoreProducesNoFindings(t *testing.T) {
	det, _, _ := newTestDetector(t)

	findings, err := det.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

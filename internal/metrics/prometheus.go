package metrics

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// exportPrometheus renders per-tool aggregates as gauges in the prometheus
// text exposition format, the label/value shape external monitoring scrapers
// ingest. A fresh registry per export keeps the output a pure projection of
// the window - nothing accumulates between calls.
func (s *Service) exportPrometheus(ctx context.Context, path string, days int) error {
	aggs, err := s.AllMetrics(ctx, days)
	if err != nil {
		return fmt.Errorf("collecting aggregates: %w", err)
	}

	registry := prometheus.NewRegistry()

	newGauge := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: name, Help: help},
			[]string{"tool"},
		)
		registry.MustRegister(g)
		return g
	}

	requests := newGauge("agentswarm_tool_requests_total", "Invocations in the export window")
	errorRate := newGauge("agentswarm_tool_error_rate", "Share of failed invocations")
	p50 := newGauge("agentswarm_tool_latency_p50_ms", "P50 invocation latency (nearest rank)")
	p95 := newGauge("agentswarm_tool_latency_p95_ms", "P95 invocation latency (nearest rank)")
	p99 := newGauge("agentswarm_tool_latency_p99_ms", "P99 invocation latency (nearest rank)")
	cacheHitRate := newGauge("agentswarm_tool_cache_hit_rate", "Share of invocations served from cache")
	avgMemory := newGauge("agentswarm_tool_avg_memory_mb", "Average heap usage per invocation")

	for _, a := range aggs {
		labels := prometheus.Labels{"tool": a.Tool}
		requests.With(labels).Set(float64(a.TotalRequests))
		errorRate.With(labels).Set(a.ErrorRate)
		p50.With(labels).Set(float64(a.P50))
		p95.With(labels).Set(float64(a.P95))
		p99.With(labels).Set(float64(a.P99))
		cacheHitRate.With(labels).Set(a.CacheHitRate)
		avgMemory.With(labels).Set(a.AvgMemoryMB)
	}

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("encoding metric family %q: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Package alert evaluates recorded tool metrics against configured
// thresholds and produces findings. Findings are computed on demand and
// never persisted; re-running a scan over the same window reproduces them.
package alert

import (
	"context"
	"fmt"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rule identifiers, stable across releases so operators can route on them.
const (
	RuleErrorRate = "error_rate"
	RuleSlowShare = "slow_share"
	RuleMemory    = "memory"
)

// Finding is one threshold breach for one tool.
type Finding struct {
	RuleID      string   `json:"rule_id"`
	Tool        string   `json:"tool_name"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	MetricValue float64  `json:"metric_value"`
	Threshold   float64  `json:"threshold"`
}

// Thresholds holds the tunable limits the detector scans against.
type Thresholds struct {
	// ErrorRate is the maximum tolerated error fraction, 0..1.
	ErrorRate float64
	// SlowMS marks a single invocation as slow when its duration exceeds it.
	SlowMS int64
	// SlowShare is the maximum tolerated fraction of slow invocations, 0..1.
	SlowShare float64
	// MemoryMB is the maximum tolerated average memory footprint.
	MemoryMB float64
}

// Detector scans the metrics service for threshold breaches.
type Detector struct {
	svc        *metrics.Service
	thresholds Thresholds
	logger     log.Logger
}

// NewDetector creates a detector over the given metrics service.
func NewDetector(svc *metrics.Service, thresholds Thresholds, logger log.Logger) *Detector {
	return &Detector{svc: svc, thresholds: thresholds, logger: logger}
}

// Scan evaluates every tool with at least one record in the last days and
// returns all findings. Tools without records produce no findings.
func (d *Detector) Scan(ctx context.Context, days int) ([]Finding, error) {
	aggs, err := d.svc.AllMetrics(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("scanning aggregates: %w", err)
	}

	var findings []Finding
	for _, agg := range aggs {
		if agg.TotalRequests == 0 {
			continue
		}

		if f, ok := d.checkErrorRate(agg); ok {
			findings = append(findings, f)
		}
		f, ok, err := d.checkSlowShare(ctx, agg, days)
		if err != nil {
			return nil, err
		}
		if ok {
			findings = append(findings, f)
		}
		if f, ok := d.checkMemory(agg); ok {
			findings = append(findings, f)
		}
	}

	if len(findings) > 0 {
		d.logger.Info("alert scan produced findings",
			"count", len(findings),
			"window_days", days,
		)
	}
	return findings, nil
}

func (d *Detector) checkErrorRate(agg metrics.Aggregate) (Finding, bool) {
	if agg.ErrorRate <= d.thresholds.ErrorRate {
		return Finding{}, false
	}
	return Finding{
		RuleID:   RuleErrorRate,
		Tool:     agg.Tool,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("error rate %.1f%% exceeds %.1f%% over %d requests",
			agg.ErrorRate*100, d.thresholds.ErrorRate*100, agg.TotalRequests),
		MetricValue: agg.ErrorRate,
		Threshold:   d.thresholds.ErrorRate,
	}, true
}

// checkSlowShare needs the raw records: the share of individually slow
// invocations is not derivable from the aggregate percentiles.
func (d *Detector) checkSlowShare(ctx context.Context, agg metrics.Aggregate, days int) (Finding, bool, error) {
	records, err := d.svc.Records(ctx, agg.Tool, days)
	if err != nil {
		return Finding{}, false, fmt.Errorf("querying records for %q: %w", agg.Tool, err)
	}
	if len(records) == 0 {
		return Finding{}, false, nil
	}

	var slow int
	for _, r := range records {
		if r.DurationMS > d.thresholds.SlowMS {
			slow++
		}
	}
	share := float64(slow) / float64(len(records))
	if share <= d.thresholds.SlowShare {
		return Finding{}, false, nil
	}
	return Finding{
		RuleID:   RuleSlowShare,
		Tool:     agg.Tool,
		Severity: SeverityMedium,
		Message: fmt.Sprintf("%.1f%% of requests slower than %dms, threshold %.1f%%",
			share*100, d.thresholds.SlowMS, d.thresholds.SlowShare*100),
		MetricValue: share,
		Threshold:   d.thresholds.SlowShare,
	}, true, nil
}

func (d *Detector) checkMemory(agg metrics.Aggregate) (Finding, bool) {
	if agg.AvgMemoryMB <= d.thresholds.MemoryMB {
		return Finding{}, false
	}
	return Finding{
		RuleID:   RuleMemory,
		Tool:     agg.Tool,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("average memory %.1fMB exceeds %.1fMB",
			agg.AvgMemoryMB, d.thresholds.MemoryMB),
		MetricValue: agg.AvgMemoryMB,
		Threshold:   d.thresholds.MemoryMB,
	}, true
}

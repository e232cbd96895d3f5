// Package observability wires OpenTelemetry tracing for the pipeline.
//
// Spans are exported over OTLP HTTP to a local collector or agent. The
// exporter is optional infrastructure: when no endpoint is configured, or the
// exporter cannot be created, tracing degrades to no-op spans and the
// pipeline keeps running.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/config"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
)

// Setup installs a tracer provider exporting to the configured OTLP endpoint
// and returns a shutdown function that flushes pending spans.
//
// With an empty endpoint, tracing stays disabled and the returned shutdown is
// a no-op. An exporter construction failure is logged and likewise degrades
// to no-op rather than failing startup.
func Setup(ctx context.Context, cfg config.OTLPConfig, logger log.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("building trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return tp.Shutdown, nil
}

// Package pipeline runs every tool invocation through the shared lifecycle:
// validation, cache lookup, mock branch, rate-limit admission, execution,
// and metrics recording.
//
// The stage order is load-bearing: the cache is consulted before admission so
// a cache hit never consumes rate-limit budget, and admission runs before
// execution so a denial never performs wasted work or pollutes the cache.
// Each invocation runs on the caller's goroutine; the executor has no
// internal scheduler and imposes no timeout of its own.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/cache"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/ratelimit"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// Options configures pipeline behavior at construction time. There is no
// process-global state: tests inject isolated executors instead of mutating
// the environment.
type Options struct {
	// MockMode redirects every execution to the tool's synthetic result
	// generator and bypasses the rate limiter. Mock responses are never
	// throttled and never written to the cache.
	MockMode bool

	// SingleFlight collapses concurrent identical cacheable misses into one
	// execution. Off by default: duplicate concurrent recomputation is a
	// redundancy, not a correctness violation.
	SingleFlight bool

	// DefaultLimit is the per-window admission limit for tools that do not
	// declare their own.
	DefaultLimit int
}

// Executor is the shared invocation pipeline. Safe for concurrent use; the
// cache, limiter, and recorder are shared across all concurrent invocations.
type Executor struct {
	registry *tools.Registry
	cache    cache.Cache
	limiter  ratelimit.Limiter
	recorder *metrics.Recorder
	logger   log.Logger
	opts     Options

	group  singleflight.Group
	tracer trace.Tracer
	now    func() time.Time
}

// New creates an executor over the given collaborators. cache may be nil for
// deployments without one; cacheable tools then always execute.
func New(registry *tools.Registry, c cache.Cache, limiter ratelimit.Limiter, recorder *metrics.Recorder, logger log.Logger, opts Options) *Executor {
	return &Executor{
		registry: registry,
		cache:    c,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
		tracer:   otel.Tracer("agentswarm/pipeline"),
		now:      time.Now,
	}
}

// Invoke runs one tool invocation through the full lifecycle and returns the
// uniform result shape. It never returns a bare error: every failure is
// classified into the error taxonomy and carried inside the Result, and
// exactly one invocation record is persisted regardless of outcome.
func (e *Executor) Invoke(ctx context.Context, name string, params tools.Params) tools.Result {
	start := e.now()
	id := metrics.NewID()

	ctx, span := e.tracer.Start(ctx, "tools.invoke", trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("invocation.id", id),
		attribute.Bool("mock.mode", e.opts.MockMode),
	))
	defer span.End()

	meta := tools.Metadata{ToolName: name, InvocationID: id, MockMode: e.opts.MockMode}

	reg, err := e.registry.Get(name)
	if err != nil {
		terr := tools.WrapError(tools.KindValidation, err, "unknown tool %q", name)
		return e.fail(ctx, span, terr, meta, start)
	}

	if terr := validate(reg, params); terr != nil {
		return e.fail(ctx, span, terr, meta, start)
	}

	spec, cacheable := cacheSpec(reg.Tool)
	var key string
	if cacheable && e.cache != nil {
		key = cache.Key(name, params, spec.Fields)
		if output, ok := e.cacheLookup(ctx, key); ok {
			meta.CacheHit = true
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return e.complete(ctx, span, output, meta, start)
		}
	}

	if e.opts.MockMode {
		output := reg.Tool.MockResult(params)
		return e.complete(ctx, span, output, meta, start)
	}

	scope, limit := rateSpec(reg.Tool, e.opts.DefaultLimit)
	if d := e.limiter.Acquire(scope, limit); !d.OK {
		terr := tools.NewError(tools.KindRateLimit, "rate limit exceeded for %q, retry in %.1fs", scope, d.RetryAfter.Seconds())
		terr.RetryAfter = d.RetryAfter
		return e.fail(ctx, span, terr, meta, start)
	}

	output, terr := e.execute(ctx, reg.Tool, params, key)
	if terr != nil {
		return e.fail(ctx, span, terr, meta, start)
	}

	if cacheable && e.cache != nil {
		e.cacheStore(ctx, key, output, spec.TTL)
	}
	return e.complete(ctx, span, output, meta, start)
}

// validate applies the resolved schema constraints, then any tool-specific
// rules. No cache, rate-limit, or execution side effect happens on failure.
func validate(reg *tools.Registration, params tools.Params) *tools.Error {
	if reg.Schema != nil {
		if err := reg.Schema.Validate(map[string]any(params)); err != nil {
			return tools.WrapError(tools.KindValidation, err, "invalid parameters: %v", err)
		}
	}
	if v, ok := reg.Tool.(tools.Validator); ok {
		if err := v.ValidateParams(params); err != nil {
			var terr *tools.Error
			if errors.As(err, &terr) {
				return terr
			}
			return tools.WrapError(tools.KindValidation, err, "invalid parameters: %v", err)
		}
	}
	return nil
}

// execute runs the tool's work, optionally collapsing concurrent identical
// cacheable misses into a single execution.
func (e *Executor) execute(ctx context.Context, t tools.Tool, params tools.Params, key string) (any, *tools.Error) {
	run := func() (any, error) { return t.Execute(ctx, params) }

	var output any
	var err error
	if e.opts.SingleFlight && key != "" {
		output, err, _ = e.group.Do(key, run)
	} else {
		output, err = run()
	}
	if err != nil {
		return nil, tools.Classify(err)
	}
	return output, nil
}

// cacheLookup returns the deserialized cached value for key. Backend failures
// are logged and treated as misses.
func (e *Executor) cacheLookup(ctx context.Context, key string) (any, bool) {
	data, found, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var output any
	if err := json.Unmarshal(data, &output); err != nil {
		e.logger.Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return output, true
}

// cacheStore writes a freshly computed result. Failures are logged, never
// surfaced: a lost write only costs a later recomputation.
func (e *Executor) cacheStore(ctx context.Context, key string, output any, ttl time.Duration) {
	data, err := json.Marshal(output)
	if err != nil {
		e.logger.Warn("cache serialization failed", "key", key, "error", err)
		return
	}
	if err := e.cache.Set(ctx, key, data, ttl); err != nil {
		e.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (e *Executor) complete(ctx context.Context, span trace.Span, output any, meta tools.Metadata, start time.Time) tools.Result {
	meta.DurationMS = e.now().Sub(start).Milliseconds()
	e.record(ctx, meta, start, true, "")
	span.SetAttributes(attribute.Int64("duration.ms", meta.DurationMS))
	return tools.OK(output, meta)
}

func (e *Executor) fail(ctx context.Context, span trace.Span, terr *tools.Error, meta tools.Metadata, start time.Time) tools.Result {
	meta.DurationMS = e.now().Sub(start).Milliseconds()
	e.record(ctx, meta, start, false, string(terr.Kind))
	span.SetAttributes(
		attribute.Int64("duration.ms", meta.DurationMS),
		attribute.String("error.kind", string(terr.Kind)),
	)
	e.logger.Debug("invocation failed",
		"tool", meta.ToolName,
		"kind", terr.Kind,
		"error", terr.Message,
	)
	return tools.Fail(terr, meta)
}

// record persists exactly one invocation record. Recording is best-effort;
// the recorder logs its own failures and never affects the result.
func (e *Executor) record(ctx context.Context, meta tools.Metadata, start time.Time, success bool, errorKind string) {
	e.recorder.Record(ctx, metrics.Record{
		ID:         meta.InvocationID,
		Tool:       meta.ToolName,
		StartTime:  start,
		DurationMS: meta.DurationMS,
		Success:    success,
		ErrorKind:  errorKind,
		CacheHit:   meta.CacheHit,
		MockMode:   meta.MockMode,
		MemoryMB:   metrics.SampleMemoryMB(),
	})
}

func cacheSpec(t tools.Tool) (tools.CacheSpec, bool) {
	c, ok := t.(tools.Cacheable)
	if !ok {
		return tools.CacheSpec{}, false
	}
	return c.CacheSpec(), true
}

// rateSpec resolves a tool's admission scope and limit, falling back to the
// tool name and the pipeline-wide default.
func rateSpec(t tools.Tool, defaultLimit int) (string, int) {
	scope, limit := t.Name(), defaultLimit
	if rl, ok := t.(tools.RateLimited); ok {
		spec := rl.RateSpec()
		if spec.Scope != "" {
			scope = spec.Scope
		}
		if spec.Limit > 0 {
			limit = spec.Limit
		}
	}
	return scope, limit
}

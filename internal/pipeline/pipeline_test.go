package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/cache"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/ratelimit"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// stubTool is a plain tool: not cacheable, no rate override.
type stubTool struct {
	name     string
	schema   *jsonschema.Schema
	mock     any
	executeF func(ctx context.Context, p tools.Params) (any, error)
	executed atomic.Int32
}

func (s *stubTool) Name() string                  { return s.name }
func (s *stubTool) Description() string           { return "stub" }
func (s *stubTool) Schema() *jsonschema.Schema    { return s.schema }
func (s *stubTool) MockResult(_ tools.Params) any { return s.mock }
func (s *stubTool) Execute(ctx context.Context, p tools.Params) (any, error) {
	s.executed.Add(1)
	if s.executeF != nil {
		return s.executeF(ctx, p)
	}
	return map[string]any{"ok": true}, nil
}

// cacheableStub adds a cache declaration.
type cacheableStub struct {
	*stubTool
	spec tools.CacheSpec
}

func (c *cacheableStub) CacheSpec() tools.CacheSpec { return c.spec }

// ratedStub adds a rate-limit override.
type ratedStub struct {
	*stubTool
	spec tools.RateSpec
}

func (r *ratedStub) RateSpec() tools.RateSpec { return r.spec }

// spyLimiter records every acquire and admits or denies per its deny flag.
type spyLimiter struct {
	mu       sync.Mutex
	acquires []string
	deny     bool
}

func (l *spyLimiter) Acquire(scope string, _ int) ratelimit.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires = append(l.acquires, scope)
	if l.deny {
		return ratelimit.Decision{RetryAfter: 30 * time.Second}
	}
	return ratelimit.Decision{OK: true}
}

func (l *spyLimiter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.acquires)
}

// countingCache wraps the memory backend and counts operations.
type countingCache struct {
	*cache.Memory
	gets atomic.Int32
	sets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	return c.Memory.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets.Add(1)
	return c.Memory.Set(ctx, key, value, ttl)
}

type fixture struct {
	executor *Executor
	registry *tools.Registry
	limiter  *spyLimiter
	cache    *countingCache
	store    *metrics.MemoryStore
}

func newFixture(t *testing.T, opts Options, toolset ...tools.Tool) *fixture {
	t.Helper()

	registry := tools.NewRegistry()
	for _, tool := range toolset {
		require.NoError(t, registry.Register(tool))
	}

	c := &countingCache{Memory: cache.NewMemory()}
	t.Cleanup(func() { _ = c.Close() })

	limiter := &spyLimiter{}
	store := metrics.NewMemoryStore()
	recorder := metrics.NewRecorder(store, log.NewNop())

	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 60
	}
	return &fixture{
		executor: New(registry, c, limiter, recorder, log.NewNop(), opts),
		registry: registry,
		limiter:  limiter,
		cache:    c,
		store:    store,
	}
}

func (f *fixture) records(t *testing.T, tool string) []metrics.Record {
	t.Helper()
	recs, err := f.store.Query(context.Background(), tool, time.Time{})
	require.NoError(t, err)
	return recs
}

func positiveIntSchema(field string) *jsonschema.Schema {
	return tools.ObjectSchema(map[string]*jsonschema.Schema{
		field: {Type: "integer", Minimum: tools.FloatPtr(1), Maximum: tools.FloatPtr(100)},
	}, field)
}

func TestInvoke_Success(t *testing.T) {
	tool := &stubTool{name: "echo"}
	f := newFixture(t, Options{}, tool)

	res := f.executor.Invoke(context.Background(), "echo", tools.Params{})

	require.True(t, res.Success)
	assert.Nil(t, res.Err)
	assert.Equal(t, map[string]any{"ok": true}, res.Output)
	assert.Equal(t, "echo", res.Metadata.ToolName)
	assert.NotEmpty(t, res.Metadata.InvocationID)
	assert.False(t, res.Metadata.CacheHit)
	assert.False(t, res.Metadata.MockMode)

	recs := f.records(t, "echo")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Success)
	assert.Equal(t, res.Metadata.InvocationID, recs[0].ID)
	assert.Greater(t, recs[0].MemoryMB, 0.0)
}

func TestInvoke_UnknownTool(t *testing.T) {
	f := newFixture(t, Options{})

	res := f.executor.Invoke(context.Background(), "ghost", tools.Params{})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindValidation, res.Err.Kind)
	assert.ErrorIs(t, res.Err, tools.ErrUnknownTool)
}

func TestInvoke_ValidationFailure(t *testing.T) {
	tool := &stubTool{name: "ranged", schema: positiveIntSchema("count")}
	f := newFixture(t, Options{}, tool)

	res := f.executor.Invoke(context.Background(), "ranged", tools.Params{"count": 500})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindValidation, res.Err.Kind)
	assert.Zero(t, tool.executed.Load(), "no execution side effect on validation failure")
	assert.Zero(t, f.limiter.count(), "no admission consumed")
	assert.Zero(t, f.cache.sets.Load(), "no cache write")

	// The invocation is still recorded: failed, no cache hit, overhead-only duration
	recs := f.records(t, "ranged")
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "ValidationError", recs[0].ErrorKind)
	assert.False(t, recs[0].CacheHit)
}

func TestInvoke_CustomValidatorRuns(t *testing.T) {
	tool := &validatedStub{stubTool: &stubTool{name: "strict"}}
	f := newFixture(t, Options{}, tool)

	res := f.executor.Invoke(context.Background(), "strict", tools.Params{})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindConfiguration, res.Err.Kind, "classified validator errors pass through")
	assert.Zero(t, tool.executed.Load())
}

// validatedStub rejects every invocation with a pre-classified error.
type validatedStub struct {
	*stubTool
}

func (v *validatedStub) ValidateParams(_ tools.Params) error {
	return tools.NewError(tools.KindConfiguration, "credential missing")
}

func TestInvoke_CacheHitSkipsExecutionAndRateLimit(t *testing.T) {
	tool := &cacheableStub{
		stubTool: &stubTool{name: "quote"},
		spec:     tools.CacheSpec{Fields: []string{"symbol"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{}, tool)
	params := tools.Params{"symbol": "ACME"}

	first := f.executor.Invoke(context.Background(), "quote", params)
	require.True(t, first.Success)
	assert.False(t, first.Metadata.CacheHit)
	assert.Equal(t, 1, f.limiter.count())

	second := f.executor.Invoke(context.Background(), "quote", params)
	require.True(t, second.Success)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, int32(1), tool.executed.Load(), "second call served from cache")
	assert.Equal(t, 1, f.limiter.count(), "cache hit consumes no rate budget")

	recs := f.records(t, "quote")
	require.Len(t, recs, 2)
	assert.False(t, recs[0].CacheHit)
	assert.True(t, recs[1].CacheHit)
}

func TestInvoke_CacheKeyIgnoresUndeclaredFields(t *testing.T) {
	tool := &cacheableStub{
		stubTool: &stubTool{name: "quote"},
		spec:     tools.CacheSpec{Fields: []string{"symbol"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{}, tool)

	f.executor.Invoke(context.Background(), "quote", tools.Params{"symbol": "ACME", "title": "a"})
	second := f.executor.Invoke(context.Background(), "quote", tools.Params{"symbol": "ACME", "title": "b"})

	assert.True(t, second.Metadata.CacheHit, "display-only fields do not split the cache")
}

func TestInvoke_NonCacheableToolSkipsCache(t *testing.T) {
	tool := &stubTool{name: "volatile"}
	f := newFixture(t, Options{}, tool)

	f.executor.Invoke(context.Background(), "volatile", tools.Params{})
	f.executor.Invoke(context.Background(), "volatile", tools.Params{})

	assert.Zero(t, f.cache.gets.Load())
	assert.Zero(t, f.cache.sets.Load())
	assert.Equal(t, int32(2), tool.executed.Load())
}

func TestInvoke_MockModeSkipsRateLimitAndCacheWrite(t *testing.T) {
	tool := &cacheableStub{
		stubTool: &stubTool{name: "Z", mock: map[string]any{"synthetic": true}},
		spec:     tools.CacheSpec{Fields: []string{"q"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{MockMode: true}, tool)

	res := f.executor.Invoke(context.Background(), "Z", tools.Params{"q": "x"})

	require.True(t, res.Success)
	assert.True(t, res.Metadata.MockMode)
	assert.False(t, res.Metadata.CacheHit)
	assert.Equal(t, map[string]any{"synthetic": true}, res.Output)
	assert.Zero(t, tool.executed.Load(), "live execution never runs in mock mode")
	assert.Zero(t, f.limiter.count(), "mock responses are never throttled")
	assert.Zero(t, f.cache.sets.Load(), "mock results never pollute the cache")

	recs := f.records(t, "Z")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].MockMode)
}

func TestInvoke_RateLimitDenial(t *testing.T) {
	tool := &cacheableStub{
		stubTool: &stubTool{name: "limited"},
		spec:     tools.CacheSpec{Fields: []string{"q"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{}, tool)
	f.limiter.deny = true

	res := f.executor.Invoke(context.Background(), "limited", tools.Params{"q": "x"})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindRateLimit, res.Err.Kind)
	assert.Equal(t, 30*time.Second, res.Err.RetryAfter)
	assert.Zero(t, tool.executed.Load(), "denial never invokes the execution core")
	assert.Zero(t, f.cache.sets.Load(), "denial never consumes a cache slot")

	recs := f.records(t, "limited")
	require.Len(t, recs, 1)
	assert.Equal(t, "RateLimitError", recs[0].ErrorKind)
}

func TestInvoke_SixthRequestDeniedWithRealWindow(t *testing.T) {
	tool := &ratedStub{
		stubTool: &stubTool{name: "X"},
		spec:     tools.RateSpec{Limit: 5},
	}

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tool))
	store := metrics.NewMemoryStore()
	executor := New(registry, nil, ratelimit.NewFixedWindow(time.Minute),
		metrics.NewRecorder(store, log.NewNop()), log.NewNop(), Options{DefaultLimit: 60})

	for i := 0; i < 5; i++ {
		res := executor.Invoke(context.Background(), "X", tools.Params{})
		require.True(t, res.Success, "request %d within the limit", i+1)
	}

	res := executor.Invoke(context.Background(), "X", tools.Params{})
	require.False(t, res.Success)
	assert.Equal(t, tools.KindRateLimit, res.Err.Kind)
	assert.Positive(t, res.Err.RetryAfter)
}

func TestInvoke_RateScopeOverride(t *testing.T) {
	tool := &ratedStub{
		stubTool: &stubTool{name: "mailer"},
		spec:     tools.RateSpec{Scope: "upstream-mail-api", Limit: 10},
	}
	f := newFixture(t, Options{}, tool)

	f.executor.Invoke(context.Background(), "mailer", tools.Params{})

	require.Equal(t, []string{"upstream-mail-api"}, f.limiter.acquires)
}

func TestInvoke_ExecutionErrorClassified(t *testing.T) {
	cause := errors.New("upstream 503")
	tool := &stubTool{
		name: "flaky",
		executeF: func(context.Context, tools.Params) (any, error) {
			return nil, cause
		},
	}
	f := newFixture(t, Options{}, tool)

	res := f.executor.Invoke(context.Background(), "flaky", tools.Params{})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindExecution, res.Err.Kind)
	assert.ErrorIs(t, res.Err, cause, "original cause preserved as context")

	recs := f.records(t, "flaky")
	require.Len(t, recs, 1)
	assert.Equal(t, "ExecutionError", recs[0].ErrorKind)
}

func TestInvoke_PreclassifiedExecutionErrorPassesThrough(t *testing.T) {
	tool := &stubTool{
		name: "misconfigured",
		executeF: func(context.Context, tools.Params) (any, error) {
			return nil, tools.NewError(tools.KindConfiguration, "API key not set")
		},
	}
	f := newFixture(t, Options{}, tool)

	res := f.executor.Invoke(context.Background(), "misconfigured", tools.Params{})

	require.False(t, res.Success)
	assert.Equal(t, tools.KindConfiguration, res.Err.Kind)
}

func TestInvoke_FailedExecutionNotCached(t *testing.T) {
	tool := &cacheableStub{
		stubTool: &stubTool{
			name: "failing",
			executeF: func(context.Context, tools.Params) (any, error) {
				return nil, errors.New("boom")
			},
		},
		spec: tools.CacheSpec{Fields: []string{"q"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{}, tool)

	f.executor.Invoke(context.Background(), "failing", tools.Params{"q": "x"})
	f.executor.Invoke(context.Background(), "failing", tools.Params{"q": "x"})

	assert.Zero(t, f.cache.sets.Load())
	assert.Equal(t, int32(2), tool.executed.Load(), "failures are recomputed, never served stale")
}

// failingStore rejects every append, to prove recording never fails a result.
type failingStore struct {
	metrics.MemoryStore
}

func (f *failingStore) Append(context.Context, metrics.Record) error {
	return errors.New("disk full")
}

func TestInvoke_RecordingFailureDoesNotAffectResult(t *testing.T) {
	tool := &stubTool{name: "echo"}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tool))

	executor := New(registry, nil, &spyLimiter{},
		metrics.NewRecorder(&failingStore{}, log.NewNop()), log.NewNop(), Options{DefaultLimit: 60})

	res := executor.Invoke(context.Background(), "echo", tools.Params{})
	assert.True(t, res.Success)
}

func TestInvoke_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	tool := &cacheableStub{
		stubTool: &stubTool{
			name: "slow",
			executeF: func(context.Context, tools.Params) (any, error) {
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
				return map[string]any{"ok": true}, nil
			},
		},
		spec: tools.CacheSpec{Fields: []string{"q"}, TTL: time.Minute},
	}
	f := newFixture(t, Options{SingleFlight: true}, tool)

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.executor.Invoke(context.Background(), "slow", tools.Params{"q": "x"})
			assert.True(t, res.Success)
		}()
	}

	<-entered
	time.Sleep(100 * time.Millisecond) // let the remaining callers join the flight
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), tool.executed.Load(), "concurrent identical misses share one execution")
}

func TestInvoke_ConcurrentInvocationsRecordOncePer(t *testing.T) {
	tool := &stubTool{name: "parallel"}
	f := newFixture(t, Options{}, tool)

	const callers = 50
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.executor.Invoke(context.Background(), "parallel", tools.Params{})
		}()
	}
	wg.Wait()

	assert.Len(t, f.records(t, "parallel"), callers)
}

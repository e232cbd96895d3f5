// Package app assembles the application: configuration, logging, cache and
// metrics backends, the tool registry, and the execution pipeline. Commands
// build an App and use its parts; nothing here is global.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/alert"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/cache"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/config"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/observability"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/pipeline"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/ratelimit"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/toolkit"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// App holds the assembled application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Registry *tools.Registry
	Executor *pipeline.Executor
	Metrics  *metrics.Service
	Detector *alert.Detector

	cache         cache.Cache
	store         metrics.RecordStore
	traceShutdown func(context.Context) error
}

// New loads configuration and wires every component. The caller owns the
// returned App and must Close it.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig wires components from an already validated configuration.
// Tests use this to inject isolated configurations without touching the
// environment.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	traceShutdown, err := observability.Setup(ctx, cfg.OTLP, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	c, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	registry := tools.NewRegistry()
	if err := toolkit.RegisterAll(registry, logger); err != nil {
		_ = c.Close()
		_ = store.Close()
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	recorder := metrics.NewRecorder(store, logger)
	window := time.Duration(cfg.RateWindowSeconds) * time.Second
	executor := pipeline.New(registry, c, ratelimit.NewFixedWindow(window), recorder, logger, pipeline.Options{
		MockMode:     cfg.MockMode,
		SingleFlight: cfg.SingleFlight,
		DefaultLimit: cfg.RateLimit,
	})

	svc := metrics.NewService(store, cfg.RetentionDays, logger)
	detector := alert.NewDetector(svc, alert.Thresholds{
		ErrorRate: cfg.ErrorRateThreshold,
		SlowMS:    cfg.SlowRequestMS,
		SlowShare: cfg.SlowRateThreshold,
		MemoryMB:  cfg.MemoryThresholdMB,
	}, logger)

	logger.Debug("application assembled",
		"tools", registry.Count(),
		"cache_backend", cfg.CacheBackend,
		"metrics_backend", cfg.MetricsBackend,
		"mock_mode", cfg.MockMode,
	)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Registry:      registry,
		Executor:      executor,
		Metrics:       svc,
		Detector:      detector,
		cache:         c,
		store:         store,
		traceShutdown: traceShutdown,
	}, nil
}

// Close releases backends and flushes pending trace spans.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.cache.Close(); err != nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.traceShutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func buildCache(ctx context.Context, cfg *config.Config, logger log.Logger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		c, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("building redis cache: %w", err)
		}
		logger.Debug("redis cache connected", "addr", cfg.RedisAddr())
		return c, nil
	default:
		return cache.NewMemory(), nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (metrics.RecordStore, error) {
	switch cfg.MetricsBackend {
	case config.MetricsPostgres:
		store, err := metrics.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres record store: %w", err)
		}
		return store, nil
	case config.MetricsMemory:
		return metrics.NewMemoryStore(), nil
	default:
		store, err := metrics.OpenSQLite(cfg.MetricsDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite record store: %w", err)
		}
		return store, nil
	}
}

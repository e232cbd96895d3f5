package config

import (
	"fmt"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Retention horizon: records strictly older are pruned. Zero would make
	// every record immediately eligible for deletion.
	if c.RetentionDays < 1 || c.RetentionDays > MaxRetentionDays {
		return fmt.Errorf("%w: retention_days must be between 1 and %d, got %d",
			ErrInvalidRetention, MaxRetentionDays, c.RetentionDays)
	}

	// Rate limiting defaults
	if c.RateWindowSeconds < 1 {
		return fmt.Errorf("%w: rate_window_seconds must be at least 1, got %d",
			ErrInvalidRateWindow, c.RateWindowSeconds)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("%w: rate_limit must be at least 1, got %d",
			ErrInvalidRateLimit, c.RateLimit)
	}

	// Alert thresholds
	if c.SlowRequestMS < 1 {
		return fmt.Errorf("%w: slow_request_ms must be positive, got %d",
			ErrInvalidSlowThreshold, c.SlowRequestMS)
	}
	if c.SlowRateThreshold < 0 || c.SlowRateThreshold > 1 {
		return fmt.Errorf("%w: slow_rate_threshold must be between 0 and 1, got %.3f",
			ErrInvalidSlowThreshold, c.SlowRateThreshold)
	}
	if c.ErrorRateThreshold < 0 || c.ErrorRateThreshold > 1 {
		return fmt.Errorf("%w: error_rate_threshold must be between 0 and 1, got %.3f",
			ErrInvalidErrorRateThreshold, c.ErrorRateThreshold)
	}
	if c.MemoryThresholdMB <= 0 {
		return fmt.Errorf("%w: memory_threshold_mb must be positive, got %.1f",
			ErrInvalidMemoryThreshold, c.MemoryThresholdMB)
	}

	// Cache backend
	validCaches := []string{CacheMemory, CacheRedis}
	if !slices.Contains(validCaches, c.CacheBackend) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidCacheBackend, c.CacheBackend, validCaches)
	}
	if c.CacheBackend == CacheRedis {
		if c.RedisHost == "" {
			return fmt.Errorf("%w: redis_host cannot be empty", ErrInvalidRedisAddr)
		}
		if c.RedisPort < 1 || c.RedisPort > 65535 {
			return fmt.Errorf("%w: redis_port must be between 1 and 65535, got %d",
				ErrInvalidRedisAddr, c.RedisPort)
		}
	}

	// Metrics backend
	validStores := []string{MetricsSQLite, MetricsPostgres, MetricsMemory}
	if !slices.Contains(validStores, c.MetricsBackend) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidMetricsBackend, c.MetricsBackend, validStores)
	}
	if c.MetricsBackend == MetricsPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("%w: set AGENTSWARM_POSTGRES_DSN or postgres_dsn in config.yaml",
			ErrMissingPostgresDSN)
	}

	return nil
}

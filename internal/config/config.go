// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.agentswarm/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Pipeline: mock mode, single-flight caching, rate-limit defaults
//   - Cache: backend selection (memory or redis) and redis connection
//   - Metrics: record store backend, sqlite path, retention horizon
//   - Alerts: slow-request, memory, and error-rate thresholds
//   - Observability: OTLP trace exporter endpoint (see observability.go)
//
// Security: Sensitive data (redis password, postgres DSN) is never logged;
// the config directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidRetention indicates the retention horizon is out of range.
	ErrInvalidRetention = errors.New("invalid retention horizon")

	// ErrInvalidSlowThreshold indicates the slow-request threshold is invalid.
	ErrInvalidSlowThreshold = errors.New("invalid slow-request threshold")

	// ErrInvalidErrorRateThreshold indicates the error-rate threshold is out of range.
	ErrInvalidErrorRateThreshold = errors.New("invalid error-rate threshold")

	// ErrInvalidMemoryThreshold indicates the memory alert threshold is invalid.
	ErrInvalidMemoryThreshold = errors.New("invalid memory threshold")

	// ErrInvalidRateWindow indicates the rate-limit window length is invalid.
	ErrInvalidRateWindow = errors.New("invalid rate-limit window")

	// ErrInvalidRateLimit indicates the default per-window limit is invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidCacheBackend indicates an unknown cache backend name.
	ErrInvalidCacheBackend = errors.New("invalid cache backend")

	// ErrInvalidMetricsBackend indicates an unknown metrics store backend name.
	ErrInvalidMetricsBackend = errors.New("invalid metrics backend")

	// ErrInvalidRedisAddr indicates the redis host or port is invalid.
	ErrInvalidRedisAddr = errors.New("invalid redis address")

	// ErrMissingPostgresDSN indicates the postgres backend was selected
	// without a connection string.
	ErrMissingPostgresDSN = errors.New("missing postgres DSN")
)

// Cache backend identifiers used in Config.CacheBackend.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Metrics store backend identifiers used in Config.MetricsBackend.
const (
	MetricsSQLite   = "sqlite"
	MetricsPostgres = "postgres"
	MetricsMemory   = "memory"
)

const (
	// DefaultRetentionDays is the default retention horizon for invocation
	// records. Records strictly older become eligible for pruning.
	DefaultRetentionDays = 30

	// MaxRetentionDays is the absolute maximum retention horizon.
	MaxRetentionDays = 365
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, DSNs, API keys), update MarshalJSON.
type Config struct {
	// Pipeline switches
	MockMode     bool `mapstructure:"mock_mode" json:"mock_mode"`
	SingleFlight bool `mapstructure:"single_flight" json:"single_flight"`

	// Rate limiting defaults (tools may override limit per scope)
	RateWindowSeconds int `mapstructure:"rate_window_seconds" json:"rate_window_seconds"`
	RateLimit         int `mapstructure:"rate_limit" json:"rate_limit"`

	// Cache configuration
	CacheBackend  string `mapstructure:"cache_backend" json:"cache_backend"` // "memory" (default) or "redis"
	RedisHost     string `mapstructure:"redis_host" json:"redis_host"`
	RedisPort     int    `mapstructure:"redis_port" json:"redis_port"`
	RedisPassword string `mapstructure:"redis_password" json:"redis_password"` // SENSITIVE: masked in MarshalJSON
	RedisDB       int    `mapstructure:"redis_db" json:"redis_db"`

	// Metrics store configuration
	MetricsBackend string `mapstructure:"metrics_backend" json:"metrics_backend"` // "sqlite" (default), "postgres", "memory"
	MetricsDBPath  string `mapstructure:"metrics_db_path" json:"metrics_db_path"`
	PostgresDSN    string `mapstructure:"postgres_dsn" json:"postgres_dsn"` // SENSITIVE: masked in MarshalJSON
	RetentionDays  int    `mapstructure:"retention_days" json:"retention_days"`

	// Alert thresholds
	SlowRequestMS      int64   `mapstructure:"slow_request_ms" json:"slow_request_ms"`
	SlowRateThreshold  float64 `mapstructure:"slow_rate_threshold" json:"slow_rate_threshold"`
	ErrorRateThreshold float64 `mapstructure:"error_rate_threshold" json:"error_rate_threshold"`
	MemoryThresholdMB  float64 `mapstructure:"memory_threshold_mb" json:"memory_threshold_mb"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability configuration (see observability.go for type definition)
	OTLP OTLPConfig `mapstructure:"otlp" json:"otlp"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".agentswarm")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// Pipeline defaults
	viper.SetDefault("mock_mode", false)
	viper.SetDefault("single_flight", false)

	// Rate limiting defaults: 60 requests per 60-second window
	viper.SetDefault("rate_window_seconds", 60)
	viper.SetDefault("rate_limit", 60)

	// Cache defaults
	viper.SetDefault("cache_backend", CacheMemory)
	viper.SetDefault("redis_host", "localhost")
	viper.SetDefault("redis_port", 6379)
	viper.SetDefault("redis_db", 0)

	// Metrics defaults
	viper.SetDefault("metrics_backend", MetricsSQLite)
	viper.SetDefault("metrics_db_path", filepath.Join(configDir, "metrics.db"))
	viper.SetDefault("retention_days", DefaultRetentionDays)

	// Alert defaults
	viper.SetDefault("slow_request_ms", 5000)
	viper.SetDefault("slow_rate_threshold", 0.1)
	viper.SetDefault("error_rate_threshold", 0.1)
	viper.SetDefault("memory_threshold_mb", 500)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// OTLP defaults
	viper.SetDefault("otlp.endpoint", "localhost:4318")
	viper.SetDefault("otlp.environment", "dev")
	viper.SetDefault("otlp.service_name", "agentswarm-tools")
}

// bindEnvVariables binds environment variable overrides explicitly.
// These are the environment-level switches consumed by the pipeline;
// everything else comes from the config file or defaults.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Pipeline switches
	mustBind("mock_mode", "AGENTSWARM_MOCK_MODE")
	mustBind("single_flight", "AGENTSWARM_SINGLE_FLIGHT")

	// Retention and alert thresholds
	mustBind("retention_days", "AGENTSWARM_RETENTION_DAYS")
	mustBind("slow_request_ms", "AGENTSWARM_SLOW_MS")
	mustBind("error_rate_threshold", "AGENTSWARM_ERROR_RATE_THRESHOLD")
	mustBind("memory_threshold_mb", "AGENTSWARM_MEMORY_THRESHOLD_MB")

	// Secrets
	mustBind("redis_password", "AGENTSWARM_REDIS_PASSWORD")
	mustBind("postgres_dsn", "AGENTSWARM_POSTGRES_DSN")

	// Observability
	mustBind("otlp.endpoint", "AGENTSWARM_OTLP_ENDPOINT")
	mustBind("otlp.environment", "AGENTSWARM_ENV")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against the
// real secret in log output.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters for longer secrets, fully masks short ones.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	// Fully mask short secrets to prevent substring matching attacks
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// RedisAddr returns the host:port address for the redis cache backend.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - RedisPassword
//   - PostgresDSN (may embed a password)
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.RedisPassword = maskSecret(a.RedisPassword)
	a.PostgresDSN = maskSecret(a.PostgresDSN)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

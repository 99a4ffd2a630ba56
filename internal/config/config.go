// Package config loads layered configuration (env + YAML) for the
// agrocheck service, following the viper-based Load/Validate shape of
// sells-group/research-cli's internal/config/config.go.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig                `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig                `yaml:"cache" mapstructure:"cache"`
	Geocode    GeocodeConfig              `yaml:"geocode" mapstructure:"geocode"`
	Server     ServerConfig               `yaml:"server" mapstructure:"server"`
	Log        LogConfig                  `yaml:"log" mapstructure:"log"`
	Auth       AuthConfig                 `yaml:"auth" mapstructure:"auth"`
	Audit      AuditConfig                `yaml:"audit" mapstructure:"audit"`
	Monitoring MonitoringConfig           `yaml:"monitoring" mapstructure:"monitoring"`
	Tracing    TracingConfig              `yaml:"tracing" mapstructure:"tracing"`
	Checkers   map[string]CheckerOverride `yaml:"checkers" mapstructure:"checkers"`
	APIVersion string                     `yaml:"api_version" mapstructure:"api_version"`
}

// TracingConfig configures OpenTelemetry tracing (internal/telemetry).
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// StoreConfig configures the relational/spatial database connection. The
// core is a reader of document/spatial tables owned externally, and an
// owner of cache/audit/auth tables.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the two-tier cache layer.
type CacheConfig struct {
	RedisURL          string `yaml:"redis_url" mapstructure:"redis_url"`
	LocalLRUSize      int    `yaml:"local_lru_size" mapstructure:"local_lru_size"`
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds" mapstructure:"default_ttl_seconds"`
}

// GeocodeConfig configures the Geocoder's primary/fallback providers.
type GeocodeConfig struct {
	PrimaryBaseURL   string  `yaml:"primary_base_url" mapstructure:"primary_base_url"`
	PrimaryEmail     string  `yaml:"primary_email" mapstructure:"primary_email"`
	PrimaryRateLimit float64 `yaml:"primary_rate_limit" mapstructure:"primary_rate_limit"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FallbackAPIKey   string  `yaml:"fallback_api_key" mapstructure:"fallback_api_key"`
	FallbackBaseURL  string  `yaml:"fallback_base_url" mapstructure:"fallback_base_url"`
	CacheTTLDays     int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int `yaml:"port" mapstructure:"port"`
	RequestTimeoutMs int `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuthConfig configures API-key authentication and its default rate limit.
type AuthConfig struct {
	DefaultRateLimitPerMinute int `yaml:"default_rate_limit_per_minute" mapstructure:"default_rate_limit_per_minute"`
}

// AuditConfig configures the async audit persister's durable queue.
type AuditConfig struct {
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`
}

// MonitoringConfig configures the Health/Freshness Monitor.
type MonitoringConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	LookbackWindowHours int    `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs   int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// SourceCadence maps a checker/source name to its expected update
	// cadence (daily|weekly|monthly), which selects the freshness
	// warning/stale thresholds in spec.md §4.9. Sources not listed default
	// to "daily".
	SourceCadence map[string]string `yaml:"source_cadence" mapstructure:"source_cadence"`
}

// CheckerOverride allows enabling/disabling a checker or overriding its
// timeout/TTL without a code change (design note 9, "Freshness thresholds").
type CheckerOverride struct {
	Enabled         *bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutMs       int   `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

// Validate checks required configuration fields based on run mode.
// Supported modes: "serve", "migrate", "seed".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Geocode.PrimaryBaseURL == "" {
			errs = append(errs, "geocode.primary_base_url is required")
		}
		if c.Geocode.PrimaryRateLimit <= 0 {
			errs = append(errs, "geocode.primary_rate_limit must be > 0")
		}
	case "migrate":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "seed":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Auth.DefaultRateLimitPerMinute < 1 {
		errs = append(errs, "auth.default_rate_limit_per_minute must be >= 1")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AGROCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.local_lru_size", 10000)
	v.SetDefault("cache.default_ttl_seconds", 3600)
	v.SetDefault("geocode.primary_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.primary_email", "compliance@verdefield.example")
	v.SetDefault("geocode.primary_rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 5)
	v.SetDefault("geocode.cache_ttl_days", 365)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_ms", 8000)
	v.SetDefault("auth.default_rate_limit_per_minute", 60)
	v.SetDefault("audit.max_workers", 5)
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "agrocheck")
	v.SetDefault("tracing.sample_rate", 0.1)
	v.SetDefault("api_version", "1.0")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

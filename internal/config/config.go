package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"goamr/adapters/stats/estimators"
	"goamr/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Source    SourceConfig
	Estimator EstimatorConfig
	Profiling ProfilingConfig
	LogLevel  string
}

// DatabaseConfig holds report history store settings. An empty URL
// disables history.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// Enabled reports whether a history store is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	UIPort  string
	GinMode string
}

// Source kinds accepted by METRICS_SOURCE
const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
	SourceHTTP      = "http"
	SourceExcel     = "excel"
)

// SourceConfig selects and configures the metrics source
type SourceConfig struct {
	Kind      string
	File      string
	URL       string
	Token     string
	Timeout   time.Duration
	RateLimit int
	Retries   int
	Seed      int64
	Targets   int
}

// EstimatorConfig holds the enrichment tunables
type EstimatorConfig struct {
	Z             float64
	ROCPoints     int
	SkewThreshold float64
	Workers       int
}

// Options converts the configuration into estimator options
func (e EstimatorConfig) Options() estimators.Options {
	return estimators.Options{
		Z:             e.Z,
		ROCPoints:     e.ROCPoints,
		SkewThreshold: e.SkewThreshold,
	}
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:  *loadDatabaseConfig(),
		Server:    *loadServerConfig(),
		Source:    *loadSourceConfig(),
		Profiling: *loadProfilingConfig(),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	estimatorConfig, err := loadEstimatorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load estimator configuration")
	}
	config.Estimator = *estimatorConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
		URL:    os.Getenv("DATABASE_URL"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		UIPort:  getEnvOrDefault("UI_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadSourceConfig() *SourceConfig {
	return &SourceConfig{
		Kind:      strings.ToLower(getEnvOrDefault("METRICS_SOURCE", SourceSynthetic)),
		File:      getEnvOrDefault("METRICS_FILE", ""),
		URL:       getEnvOrDefault("METRICS_URL", ""),
		Token:     getEnvOrDefault("METRICS_TOKEN", ""),
		Timeout:   getEnvDurationOrDefault("METRICS_TIMEOUT", 10*time.Second),
		RateLimit: getEnvIntOrDefault("METRICS_RATE_LIMIT", 60),
		Retries:   getEnvIntOrDefault("METRICS_RETRIES", 2),
		Seed:      int64(getEnvIntOrDefault("SYNTHETIC_SEED", 42)),
		Targets:   getEnvIntOrDefault("SYNTHETIC_TARGETS", 12),
	}
}

// loadEstimatorConfig resolves the z multiplier. CONFIDENCE_Z wins over
// CONFIDENCE_LEVEL when both are set.
func loadEstimatorConfig() (*EstimatorConfig, error) {
	z := estimators.DefaultZ
	if raw := os.Getenv("CONFIDENCE_Z"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("CONFIDENCE_Z is not a number: %q", raw))
		}
		z = v
	} else if raw := os.Getenv("CONFIDENCE_LEVEL"); raw != "" {
		level, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("CONFIDENCE_LEVEL is not a number: %q", raw))
		}
		v, err := estimators.ZForConfidence(level)
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		z = v
	}

	return &EstimatorConfig{
		Z:             z,
		ROCPoints:     getEnvIntOrDefault("ROC_POINTS", estimators.DefaultROCPoints),
		SkewThreshold: getEnvFloatOrDefault("SKEW_THRESHOLD", estimators.DefaultSkewThreshold),
		Workers:       getEnvIntOrDefault("ENRICH_WORKERS", 8),
	}, nil
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if err := config.Estimator.Options().Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Estimator.Workers < 1 {
		return errors.ConfigInvalid("ENRICH_WORKERS must be at least 1")
	}

	switch config.Source.Kind {
	case SourceSynthetic:
		if config.Source.Targets < 1 {
			return errors.ConfigInvalid("SYNTHETIC_TARGETS must be at least 1")
		}
	case SourceFile, SourceExcel:
		if config.Source.File == "" {
			return errors.ConfigInvalid("METRICS_FILE is required for METRICS_SOURCE=" + config.Source.Kind)
		}
	case SourceHTTP:
		if config.Source.URL == "" {
			return errors.ConfigInvalid("METRICS_URL is required for METRICS_SOURCE=http")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown METRICS_SOURCE %q", config.Source.Kind))
	}

	if config.Database.Enabled() {
		switch config.Database.Driver {
		case "postgres", "sqlite3":
		default:
			return errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_DRIVER %q", config.Database.Driver))
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Package config loads the catalog index's runtime configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all index configuration.
type Config struct {
	Service     ServiceConfig
	Database    DatabaseConfig
	Diagnostics DiagnosticsConfig
}

// ServiceConfig holds service-wide settings.
type ServiceConfig struct {
	Name      string
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds the embedded store's settings.
type DatabaseConfig struct {
	// Path is a filesystem directory (an "index" subpath is created under
	// it) or ":memory:" for a non-persistent store used by tests.
	Path string

	// FlushSleep is the background durability flusher's wake period.
	// Defaults to 10s if unset or unparseable, per the global property of
	// the same name.
	FlushSleep time.Duration
}

// DiagnosticsConfig holds the ambient health/pprof listener's settings.
type DiagnosticsConfig struct {
	Enabled bool
	Port    int
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:      serviceName,
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Path:       getEnv("DB_PATH", ":memory:"),
			FlushSleep: getEnvDuration("FLUSH_SLEEP_SECONDS", 10*time.Second),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: getEnvBool("DIAGNOSTICS_ENABLED", true),
			Port:    getEnvInt("DIAGNOSTICS_PORT", 8081),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.FlushSleep <= 0 {
		return fmt.Errorf("flush sleep must be positive")
	}
	if c.Diagnostics.Enabled && (c.Diagnostics.Port < 1 || c.Diagnostics.Port > 65535) {
		return fmt.Errorf("invalid diagnostics port: %d", c.Diagnostics.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration parses an integer number of seconds from the environment,
// mirroring the FlushSleep global property's own unit.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

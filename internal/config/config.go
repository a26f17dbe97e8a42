package config

import (
	"os"
	"strconv"
	"strings"

	"civicprofile/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Report   ReportConfig
	Logging  LoggingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the connection used by query-backed datasets
type DatabaseConfig struct {
	URL string // optional; only required when the manifest has queries
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	ManifestPath string // empty selects the embedded default manifest
	TopN         int
	Format       string
	OutputDir    string
	MaxParallel  int
	RowLimit     int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Formats accepted by the report renderer
var Formats = []string{"table", "markdown", "html", "json"}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Report: ReportConfig{
			ManifestPath: getEnvOrDefault("PROFILE_MANIFEST", ""),
			TopN:         getEnvIntOrDefault("TOP_N", 50),
			Format:       strings.ToLower(getEnvOrDefault("REPORT_FORMAT", "table")),
			OutputDir:    getEnvOrDefault("OUTPUT_DIR", ""),
			MaxParallel:  getEnvIntOrDefault("MAX_PARALLEL", 3),
			RowLimit:     getEnvIntOrDefault("ROW_LIMIT", 0),
		},
		Logging: LoggingConfig{
			Level:  strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Report.TopN <= 0 {
		return errors.ConfigInvalid("TOP_N must be a positive integer")
	}
	if config.Report.MaxParallel <= 0 {
		return errors.ConfigInvalid("MAX_PARALLEL must be a positive integer")
	}
	if config.Report.RowLimit < 0 {
		return errors.ConfigInvalid("ROW_LIMIT must not be negative")
	}
	if !IsFormat(config.Report.Format) {
		return errors.ConfigInvalid("REPORT_FORMAT must be one of " + strings.Join(Formats, ", "))
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return errors.ConfigInvalid("LOG_FORMAT must be text or json")
	}
	return nil
}

// IsFormat reports whether f names a supported report format
func IsFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
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

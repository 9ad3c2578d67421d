// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	threshold := cfg.Matching.VendorSimilarityThreshold
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Matching      MatchingConfig      `yaml:"matching"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP API server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MatchingConfig holds the reconciliation engine's tunable knobs
type MatchingConfig struct {
	// DuplicateWindowDays is the +/- window for duplicate receipt search
	DuplicateWindowDays int `yaml:"duplicate_window_days"`

	// BankWindowDays is the +/- window for bank transaction search
	BankWindowDays int `yaml:"bank_window_days"`

	// VendorSimilarityThreshold is the fuzzy score at or above which a raw
	// vendor name attaches to an existing vendor as an alias
	VendorSimilarityThreshold float64 `yaml:"vendor_similarity_threshold"`

	// FloatToleranceCents is the absolute variance (in cents) inside which
	// a float reconciles clean
	FloatToleranceCents int `yaml:"float_tolerance_cents"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${BACKOFFICE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("BACKOFFICE_DB_PATH", "backoffice.db"),
		},
		Server: ServerConfig{
			Port: getEnvInt("BACKOFFICE_PORT", 8080),
		},
		Matching: MatchingConfig{
			DuplicateWindowDays: getEnvInt("BACKOFFICE_DUP_WINDOW_DAYS", 0),
			BankWindowDays:      getEnvInt("BACKOFFICE_BANK_WINDOW_DAYS", 0),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}

	cfg.applyDefaults()

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values with engine defaults.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "backoffice.db"
	}
	if c.Matching.DuplicateWindowDays == 0 {
		c.Matching.DuplicateWindowDays = 7
	}
	if c.Matching.BankWindowDays == 0 {
		c.Matching.BankWindowDays = 5
	}
	if c.Matching.VendorSimilarityThreshold == 0 {
		c.Matching.VendorSimilarityThreshold = 0.85
	}
	if c.Matching.FloatToleranceCents == 0 {
		c.Matching.FloatToleranceCents = 1
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

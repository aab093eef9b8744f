// Package config loads and validates pincache configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PINCACHE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each backing store implementation defines its own options. The Config
// struct carries one type-specific section per store kind (store.memory,
// store.badger, store.s3) and only the section matching the selected
// type is used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete pincache configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Cache configures the in-memory cache layer
	Cache CacheConfig `mapstructure:"cache"`

	// Stats configures the entry statistics collector
	Stats StatsConfig `mapstructure:"stats"`

	// Store selects and configures the backing store
	Store StoreConfig `mapstructure:"store"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// CacheConfig configures the sharded cache.
type CacheConfig struct {
	// CapacityBytes is the total charge budget. Zero disables capacity
	// eviction.
	CapacityBytes int64 `mapstructure:"capacity_bytes" validate:"gte=0"`

	// Shards is the shard count, rounded up to a power of two.
	// Zero selects the default.
	Shards int `mapstructure:"shards" validate:"gte=0,lte=4096"`

	// StrictCapacity makes inserts fail instead of overshooting the
	// capacity budget when all entries are pinned.
	StrictCapacity bool `mapstructure:"strict_capacity"`

	// MaxLoadsPerSecond caps miss-path loads against the backing store.
	// Zero means unlimited.
	MaxLoadsPerSecond uint `mapstructure:"max_loads_per_second"`

	// LoadBurst is the burst capacity for miss-path loads.
	LoadBurst uint `mapstructure:"load_burst"`
}

// StatsConfig configures the entry statistics collector.
type StatsConfig struct {
	// MaxAge is the default staleness bound callers tolerate for usage
	// statistics snapshots.
	MaxAge time.Duration `mapstructure:"max_age" validate:"gte=0"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled initializes the global metrics registry at startup.
	Enabled bool `mapstructure:"enabled"`
}

// StoreConfig specifies backing store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory badger s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default
//     location, and a missing default file is not an error)
//
// Returns the loaded, defaulted and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: PINCACHE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PINCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file: defaults and environment only.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pincache")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "pincache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks whether a config file exists at the default
// location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

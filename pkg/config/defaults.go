package config

import "time"

// Default values applied to unset configuration fields.
const (
	DefaultLogLevel      = "INFO"
	DefaultCapacityBytes = int64(256 << 20) // 256 MiB
	DefaultShards        = 16
	DefaultStatsMaxAge   = 3 * time.Minute
	DefaultStoreType     = "memory"
)

// ApplyDefaults fills unset fields with production defaults.
//
// Called after unmarshalling and before validation, so a partially
// specified config file is always usable.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache)
	applyStatsDefaults(&cfg.Stats)
	applyStoreDefaults(&cfg.Store)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.CapacityBytes == 0 {
		cfg.CapacityBytes = DefaultCapacityBytes
	}
	if cfg.Shards == 0 {
		cfg.Shards = DefaultShards
	}
}

func applyStatsDefaults(cfg *StatsConfig) {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultStatsMaxAge
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = DefaultStoreType
	}
}

// GetDefaultConfig returns a fully defaulted configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

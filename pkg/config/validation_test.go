package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return GetDefaultConfig()
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty log level",
			mutate: func(c *Config) { c.Logging.Level = "" },
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "TRACE" },
		},
		{
			name:   "negative capacity",
			mutate: func(c *Config) { c.Cache.CapacityBytes = -1 },
		},
		{
			name:   "too many shards",
			mutate: func(c *Config) { c.Cache.Shards = 8192 },
		},
		{
			name:   "negative stats max age",
			mutate: func(c *Config) { c.Stats.MaxAge = -1 },
		},
		{
			name:   "unknown store type",
			mutate: func(c *Config) { c.Store.Type = "redis" },
		},
		{
			name:   "empty store type",
			mutate: func(c *Config) { c.Store.Type = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateLowercaseLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Fatalf("lowercase log level must validate: %v", err)
	}
}

func TestValidateStrictCapacityRequiresBudget(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.StrictCapacity = true
	cfg.Cache.CapacityBytes = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for strict capacity without a budget")
	}
	if !strings.Contains(err.Error(), "strict_capacity") {
		t.Errorf("error should name the offending field: %v", err)
	}
}

func TestValidateLoadBurstRequiresRate(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.LoadBurst = 10
	cfg.Cache.MaxLoadsPerSecond = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for burst without a rate")
	}
	if !strings.Contains(err.Error(), "load_burst") {
		t.Errorf("error should name the offending field: %v", err)
	}
}

func TestValidationErrorIsReadable(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Type = "redis"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "Store.Type") {
		t.Errorf("error should name the failing field path: %v", err)
	}
}

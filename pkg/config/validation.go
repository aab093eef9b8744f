package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// go-playground/validator handles the declarative per-field rules; the
// custom rules cover cross-field constraints that cannot be expressed
// in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Strict capacity with no budget would reject every insert.
	if cfg.Cache.StrictCapacity && cfg.Cache.CapacityBytes == 0 {
		return fmt.Errorf("cache: strict_capacity requires capacity_bytes > 0")
	}

	// A burst without a rate is meaningless; catch the likely typo.
	if cfg.Cache.LoadBurst > 0 && cfg.Cache.MaxLoadsPerSecond == 0 {
		return fmt.Errorf("cache: load_burst requires max_loads_per_second > 0")
	}

	return nil
}

// formatValidationError turns validator errors into a readable message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	for _, ferr := range verrs {
		return fmt.Errorf("config field %q failed validation rule %q (value: %v)",
			ferr.Namespace(), ferr.Tag(), ferr.Value())
	}
	return err
}

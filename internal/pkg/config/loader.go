// Package config provides fail-open environment loaders and validators.
// A bad value never stops startup: the default is applied, a warning is
// collected, and metrics record that a fallback is active.
package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult is the outcome of loading one value: the effective value
// (environment or default), any warnings, and whether the default had to be
// used because the provided value was invalid.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString reads a string from the environment, returning defaultValue
// when unset. No validation.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback reads a string and validates it. An unset variable
// uses the default silently; an invalid one uses the default with a
// warning. Never returns an error.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallbackResult(envKey, value, defaultValue, err)
		}
	}
	return ConfigLoadResult{Value: value}
}

// LoadEnvDuration reads a Go duration string ("30s", "1h30m") with optional
// validation of the parsed value.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallbackResult(envKey, valueStr, defaultValue, err)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallbackResult(envKey, valueStr, defaultValue, err)
		}
	}
	return ConfigLoadResult{Value: parsed}
}

// LoadEnvInt reads an integer with optional validation.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	var parsed int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsed); err != nil {
		return fallbackResult(envKey, valueStr, defaultValue, fmt.Errorf("invalid integer format"))
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallbackResult(envKey, valueStr, defaultValue, err)
		}
	}
	return ConfigLoadResult{Value: parsed}
}

// LoadEnvBool reads a boolean. Accepted spellings follow strconv.ParseBool:
// 1/0, t/f, true/false in any common casing.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	switch valueStr {
	case "1", "t", "T", "true", "TRUE", "True":
		return ConfigLoadResult{Value: true}
	case "0", "f", "F", "false", "FALSE", "False":
		return ConfigLoadResult{Value: false}
	default:
		err := fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		return fallbackResult(envKey, valueStr, defaultValue, err)
	}
}

func fallbackResult(envKey, raw string, defaultValue interface{}, err error) ConfigLoadResult {
	warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
		envKey, raw, err, defaultValue)
	return ConfigLoadResult{
		Value:           defaultValue,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

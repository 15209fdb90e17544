package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "snapshot.dir").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	// Validate quota configuration
	errs = append(errs, validateQuotas(cfg.Quotas)...)

	// Validate snapshot configuration
	errs = append(errs, validateSnapshot(&cfg.Snapshot)...)

	// Validate retention configuration
	errs = append(errs, validateRetention(&cfg.Retention)...)

	// Validate telemetry configuration
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	// Validate credentials configuration
	errs = append(errs, validateCredentials(&cfg.Credentials)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateQuotas validates per-key quota configurations.
// Negative limits are rejected here so a malformed file fails at load
// rather than at the first quota check.
func validateQuotas(quotas map[string]QuotaConfig) []FieldError {
	var errs []FieldError

	for name, q := range quotas {
		prefix := fmt.Sprintf("quotas.%s", name)

		if name == "" {
			errs = append(errs, FieldError{
				Field:   "quotas",
				Message: "quota key must not be empty",
			})
		}
		if q.PerMinute < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".per_minute",
				Message: "per-minute limit must be non-negative",
			})
		}
		if q.PerDay < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".per_day",
				Message: "per-day limit must be non-negative",
			})
		}
		if q.Total < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".total",
				Message: "total cap must be non-negative",
			})
		}
		if q.PerDay > 0 && q.PerMinute > q.PerDay {
			errs = append(errs, FieldError{
				Field:   prefix + ".per_minute",
				Message: "per-minute limit exceeds per-day limit and can never be reached",
			})
		}
	}

	return errs
}

// validateSnapshot validates snapshot configuration.
func validateSnapshot(cfg *SnapshotConfig) []FieldError {
	var errs []FieldError

	if cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "snapshot.dir",
			Message: "snapshot directory is required",
		})
	}

	return errs
}

// validateRetention validates retention configuration.
func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	// Validate max age covers the counting windows
	if cfg.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.max_age",
			Message: "max age must be non-negative",
		})
	}
	if cfg.MaxAge > 0 && cfg.MaxAge < 24*time.Hour {
		errs = append(errs, FieldError{
			Field:   "retention.max_age",
			Message: "max age must be at least 24h so window counts stay correct",
		})
	}

	// Validate archive settings
	if cfg.Archive.Enabled && cfg.Archive.DBPath == "" {
		errs = append(errs, FieldError{
			Field:   "retention.archive.db_path",
			Message: "archive database path is required when archiving is enabled",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	return errs
}

// validateCredentials validates credentials configuration.
func validateCredentials(cfg *CredentialsConfig) []FieldError {
	var errs []FieldError

	if cfg.EnvVar == "" {
		errs = append(errs, FieldError{
			Field:   "credentials.env_var",
			Message: "credential environment variable name is required",
		})
	}

	return errs
}

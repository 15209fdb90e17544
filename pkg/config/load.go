package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TALLY_SECTION_FIELD (e.g., TALLY_SNAPSHOT_DIR).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TALLY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Snapshot overrides
	if val := os.Getenv("TALLY_SNAPSHOT_DIR"); val != "" {
		cfg.Snapshot.Dir = val
	}
	if val := os.Getenv("TALLY_SNAPSHOT_SCHEDULE"); val != "" {
		cfg.Snapshot.Schedule = val
	}
	if val := os.Getenv("TALLY_SNAPSHOT_PRETTY"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Snapshot.Pretty = b
		}
	}

	// Retention overrides
	if val := os.Getenv("TALLY_RETENTION_MAX_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retention.MaxAge = d
		}
	}
	if val := os.Getenv("TALLY_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}
	if val := os.Getenv("TALLY_RETENTION_ARCHIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.Archive.Enabled = b
		}
	}
	if val := os.Getenv("TALLY_RETENTION_ARCHIVE_DB_PATH"); val != "" {
		cfg.Retention.Archive.DBPath = val
	}

	// Telemetry overrides
	if val := os.Getenv("TALLY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TALLY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TALLY_TELEMETRY_LOGGING_REDACT_KEYS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.RedactKeys = &b
		}
	}
	if val := os.Getenv("TALLY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}

	// Credentials overrides
	if val := os.Getenv("TALLY_CREDENTIALS_ENV_VAR"); val != "" {
		cfg.Credentials.EnvVar = val
	}

	// Watch override
	if val := os.Getenv("TALLY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Watch = b
		}
	}
}

// APIKey resolves the operation credential from the environment variable
// named by the credentials section. It returns an error naming the
// variable when it is unset or empty, so callers can surface a clear
// message instead of sending empty credentials.
func (c *Config) APIKey() (string, error) {
	name := c.Credentials.EnvVar
	if name == "" {
		name = DefaultCredentialsEnvVar
	}
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set: export the api key before running", name)
	}
	return key, nil
}

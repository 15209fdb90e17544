package config

import "time"

// Config is the root configuration structure for Tally.
// It contains all configuration sections for quota enforcement, snapshot
// persistence, retention, telemetry, and credential resolution.
type Config struct {
	// Quotas maps api keys (or key aliases) to their call limits.
	// A key absent from this map is unlimited.
	Quotas map[string]QuotaConfig `yaml:"quotas"`

	// Snapshot contains configuration for usage snapshot persistence
	// including the output directory and an optional save schedule.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Retention contains configuration for pruning aged call records
	// and archiving them before removal.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Credentials contains configuration for resolving the operation
	// credential from the environment.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Watch controls whether the configuration file is watched for
	// changes. When enabled, quota edits are applied without a restart.
	// Default: false
	Watch bool `yaml:"watch"`
}

// QuotaConfig contains the call limits for a single api key.
// A zero value in any field means that dimension is unlimited.
type QuotaConfig struct {
	// PerMinute caps calls inside the rolling 60-second window.
	// Default: 0 (unlimited)
	PerMinute int `yaml:"per_minute"`

	// PerDay caps calls inside the rolling 24-hour window.
	// Default: 0 (unlimited)
	PerDay int `yaml:"per_day"`

	// Total caps calls ever recorded for the key. Reaching it blocks
	// the key until usage is explicitly reset.
	// Default: 0 (unlimited)
	Total int64 `yaml:"total"`
}

// SnapshotConfig contains configuration for usage snapshot persistence.
type SnapshotConfig struct {
	// Dir is the directory where auto-named snapshot files are written.
	// Default: "data/snapshots"
	Dir string `yaml:"dir"`

	// Schedule is an optional cron expression for automatic snapshot
	// saves (e.g., "0 * * * *" for hourly). Empty disables scheduled
	// snapshots; explicit Save calls still work.
	// Default: "" (disabled)
	Schedule string `yaml:"schedule"`

	// Pretty controls whether snapshot JSON is indented for human
	// readability. Compact output is smaller and faster to write.
	// Default: false
	Pretty bool `yaml:"pretty"`
}

// RetentionConfig contains configuration for pruning aged call records.
type RetentionConfig struct {
	// MaxAge is the age beyond which call records are pruned from
	// memory. Must be at least 24h so window counts stay correct.
	// Default: 168h (7 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a cron expression controlling when pruning runs.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`

	// Archive contains configuration for archiving records before
	// they are pruned.
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig contains configuration for the prune-time archive.
type ArchiveConfig struct {
	// Enabled controls whether pruned records are archived to SQLite
	// before removal. When enabled, a failed archive write aborts the
	// prune so no record is lost.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite archive database file.
	// Default: "data/archive.db"
	DBPath string `yaml:"db_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// RedactKeys controls whether api key values in log attributes are
	// masked. Pointer to distinguish unset vs false.
	// Default: true
	RedactKeys *bool `yaml:"redact_keys"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are registered and updated.
	// Pointer to distinguish unset vs false.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// CredentialsConfig contains configuration for credential resolution.
type CredentialsConfig struct {
	// EnvVar is the name of the environment variable holding the
	// operation api key. The key value itself never appears in the
	// configuration file.
	// Default: "TALLY_API_KEY"
	EnvVar string `yaml:"env_var"`
}

// MetricsEnabled reports whether metrics collection is on, applying the
// default when the field was not set.
func (c *Config) MetricsEnabled() bool {
	if c.Telemetry.Metrics.Enabled == nil {
		return DefaultMetricsEnabled
	}
	return *c.Telemetry.Metrics.Enabled
}

// RedactKeys reports whether log redaction is on, applying the default
// when the field was not set.
func (c *Config) RedactKeys() bool {
	if c.Telemetry.Logging.RedactKeys == nil {
		return DefaultLoggingRedactKeys
	}
	return *c.Telemetry.Logging.RedactKeys
}

package config

import "time"

// Default values for configuration fields.
const (
	// Snapshot defaults
	DefaultSnapshotDir      = "data/snapshots"
	DefaultSnapshotSchedule = "" // disabled
	DefaultSnapshotPretty   = false

	// Retention defaults
	DefaultRetentionMaxAge   = 168 * time.Hour // 7 days
	DefaultRetentionSchedule = "0 3 * * *"
	DefaultArchiveEnabled    = false
	DefaultArchiveDBPath     = "data/archive.db"

	// Telemetry defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultLoggingRedactKeys = true
	DefaultMetricsEnabled    = true

	// Credentials defaults
	DefaultCredentialsEnvVar = "TALLY_API_KEY"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Snapshot defaults
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = DefaultSnapshotDir
	}

	// Retention defaults
	if cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxAge = DefaultRetentionMaxAge
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
	if cfg.Retention.Archive.DBPath == "" {
		cfg.Retention.Archive.DBPath = DefaultArchiveDBPath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}

	// Credentials defaults
	if cfg.Credentials.EnvVar == "" {
		cfg.Credentials.EnvVar = DefaultCredentialsEnvVar
	}
}

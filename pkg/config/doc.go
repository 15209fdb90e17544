// Package config provides configuration management for Tally.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("tally.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("tally.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TALLY_SECTION_FIELD.
// For example:
//
//   - TALLY_SNAPSHOT_DIR overrides snapshot.dir
//   - TALLY_RETENTION_MAX_AGE overrides retention.max_age
//   - TALLY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("tally.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Snapshot.Dir)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Range validation (e.g., quota limits must be non-negative)
//   - Format validation (e.g., logging level must be a known name)
//   - Logical validation (e.g., archiving requires a database path)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - quotas.team-a.per_minute: per-minute limit must be non-negative
//	  - telemetry.logging.level: invalid logging level "trace"
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	quotas:
//	  "sk-prod-key":
//	    per_minute: 100
//	    per_day: 5000
//	    total: 100000
//
//	snapshot:
//	  dir: "data/snapshots"
//	  schedule: "0 * * * *"
//
//	retention:
//	  max_age: 168h
//	  archive:
//	    enabled: true
//	    db_path: "data/archive.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Hot Reload
//
// When watching is enabled, the Watcher re-loads the file on change and
// hands the new configuration to a callback. Pair it with the tracker's
// quota replacement so limit edits apply without a restart.
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config

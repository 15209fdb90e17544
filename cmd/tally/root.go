package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Tally - client-side API usage accounting and quota enforcement",
	Long: `Tally is a usage accounting engine for clients of metered third-party APIs.

It records every outbound API call, derives usage over rolling 60-second
and 24-hour windows, and enforces per-key quotas before calls are made.
Usage survives restarts through versioned JSON snapshots.

The tally command works with those artifacts:
  - Validate configuration files with quota definitions
  - Summarize and inspect usage snapshots (api keys are always masked)
  - Prune aged call records out of snapshots, archiving them to SQLite
  - Simulate call load to preview quota behavior

For more information, visit: https://github.com/tallyworks/tally`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tally.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

// commandLogger returns the logger handed to library components.
// Commands print their own output, so library logging is discarded
// unless --verbose streams it to stderr with api keys redacted.
func commandLogger() (*slog.Logger, error) {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	return logging.New(logging.Config{
		Level:      "debug",
		Format:     string(logging.FormatText),
		RedactKeys: true,
		Writer:     os.Stderr,
	})
}

// loadTracker builds a tracker and replaces its state with the
// contents of the given snapshot file.
func loadTracker(path string) (*accounting.Tracker, error) {
	logger, err := commandLogger()
	if err != nil {
		return nil, err
	}

	tracker := accounting.New(accounting.Config{Logger: logger})
	if err := tracker.Load(path); err != nil {
		return nil, err
	}
	return tracker, nil
}

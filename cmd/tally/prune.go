package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"tallyworks/tally/pkg/accounting/archive"
	"tallyworks/tally/pkg/accounting/retention"
	"tallyworks/tally/pkg/cli"
	"tallyworks/tally/pkg/config"
)

var pruneFlags struct {
	snapshotPath string
	output       string
	maxAge       time.Duration
	dryRun       bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune aged records out of a snapshot",
	Long: `Compact records older than the retention age out of a snapshot.

Pruned records fold into carried totals, so all-time counts are
unchanged; only the per-record history is dropped. When archiving is
enabled in the configuration, expired records are written to the
SQLite archive before they are removed, and nothing is pruned if
archiving fails.

The pruned state is written to --output, or back over the input
snapshot when --output is not given.

Examples:
  # Prune with the configured retention age
  tally prune --snapshot usage.json

  # Override the retention age and write elsewhere
  tally prune --snapshot usage.json --max-age 48h --output pruned.json

  # Count what would be pruned without changing anything
  tally prune --snapshot usage.json --dry-run`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVarP(&pruneFlags.snapshotPath, "snapshot", "s", "", "snapshot file to prune (required)")
	pruneCmd.Flags().StringVarP(&pruneFlags.output, "output", "o", "", "output path (defaults to the input path)")
	pruneCmd.Flags().DurationVar(&pruneFlags.maxAge, "max-age", 0, "override the configured retention age")
	pruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "report what would be pruned without writing")
	pruneCmd.MarkFlagRequired("snapshot")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	maxAge := cfg.Retention.MaxAge
	if pruneFlags.maxAge > 0 {
		maxAge = pruneFlags.maxAge
	}

	tracker, err := loadTracker(pruneFlags.snapshotPath)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	if pruneFlags.dryRun {
		cutoff := time.Now().Add(-maxAge)
		expired := tracker.ExpiredRecords(cutoff)
		fmt.Printf("Would prune %d of %d record(s) (cutoff %s)\n",
			len(expired), tracker.RecordCount(), cutoff.Format(time.RFC3339))
		return nil
	}

	var archiver archive.Archiver
	if cfg.Retention.Archive.Enabled {
		sqlite, err := archive.NewSQLiteArchive(cfg.Retention.Archive.DBPath)
		if err != nil {
			return cli.NewCommandError("prune", fmt.Errorf("failed to open archive: %w", err))
		}
		defer sqlite.Close()
		archiver = sqlite
	}

	pruner, err := retention.NewPruner(tracker, archiver, &retention.Config{
		MaxAge:              maxAge,
		ArchiveBeforeDelete: cfg.Retention.Archive.Enabled,
	})
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	ctx := context.Background()
	removed, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	outPath := pruneFlags.output
	if outPath == "" {
		outPath = pruneFlags.snapshotPath
	}
	written, err := tracker.Save(outPath)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	fmt.Printf("✓ Pruned %d record(s) older than %s\n", removed, maxAge)
	if cfg.Retention.Archive.Enabled && removed > 0 {
		fmt.Printf("✓ Archived to %s\n", cfg.Retention.Archive.DBPath)
	}
	fmt.Printf("✓ Snapshot written: %s\n", written)

	return nil
}

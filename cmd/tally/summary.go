package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/cli"
)

var summaryFlags struct {
	snapshotPath string
	key          string
	format       string
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-key usage summaries from a snapshot",
	Long: `Print usage summaries for every api key recorded in a snapshot.

Each summary reports the all-time total together with the counts
inside the rolling 60-second and 24-hour windows, broken down per
operation, plus the enforced quota if one is set. Api keys are always
masked in output.

Window counts are measured against the current wall clock, so a
summary of an old snapshot will show zero windowed calls while the
all-time totals remain.

Examples:
  # Summarize every key in a snapshot
  tally summary --snapshot data/snapshots/usage-2025-06-01-120000-a1b2c3d4.json

  # A single key, matched raw or by masked form
  tally summary --snapshot usage.json --key "sk-l***e-01"

  # Machine-readable output
  tally summary --snapshot usage.json --format json
  tally summary --snapshot usage.json --format csv`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVarP(&summaryFlags.snapshotPath, "snapshot", "s", "", "snapshot file to read (required)")
	summaryCmd.Flags().StringVarP(&summaryFlags.key, "key", "k", "", "report only this api key (raw or masked)")
	summaryCmd.Flags().StringVarP(&summaryFlags.format, "format", "f", "text", "output format: text, json, csv")
	summaryCmd.MarkFlagRequired("snapshot")
}

func runSummary(cmd *cobra.Command, args []string) error {
	tracker, err := loadTracker(summaryFlags.snapshotPath)
	if err != nil {
		return cli.NewCommandError("summary", err)
	}

	summaries := tracker.Summaries()

	if summaryFlags.key != "" {
		// The flag may carry the raw key or its masked form; summaries
		// only ever carry the masked form.
		masked := accounting.MaskKey(summaryFlags.key)
		filtered := make([]accounting.Summary, 0, 1)
		for _, s := range summaries {
			if s.APIKey == masked || s.APIKey == summaryFlags.key {
				filtered = append(filtered, s)
			}
		}
		summaries = filtered
	}

	if len(summaries) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	switch cli.OutputFormat(summaryFlags.format) {
	case cli.FormatJSON:
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, summaries)
	case cli.FormatCSV:
		return writeSummaryCSV(os.Stdout, summaries)
	default:
		printSummaries(summaries)
		return nil
	}
}

func printSummaries(summaries []accounting.Summary) {
	fmt.Println("Usage Summary")
	fmt.Println("=============")

	for _, s := range summaries {
		fmt.Println()
		fmt.Println(s.APIKey)
		fmt.Printf("  Total:    %d calls (last 60s: %d, last 24h: %d)\n",
			s.Counts.Total, s.Counts.LastMinute, s.Counts.LastDay)
		if s.Quota != nil {
			fmt.Printf("  Quota:    per_minute=%d per_day=%d total=%d\n",
				s.Quota.PerMinute, s.Quota.PerDay, s.Quota.Total)
		}
		if len(s.Operations) > 0 {
			fmt.Println("  Operations:")
			for _, op := range s.Operations {
				fmt.Printf("    %-24s total=%-8d last_60s=%-6d last_24h=%d\n",
					op.Operation, op.Counts.Total, op.Counts.LastMinute, op.Counts.LastDay)
			}
		}
	}
}

func writeSummaryCSV(w io.Writer, summaries []accounting.Summary) error {
	formatter := &cli.CSVFormatter{
		Headers: []string{"api_key", "operation", "total", "last_60s", "last_24h"},
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		for _, op := range s.Operations {
			rows = append(rows, []string{
				s.APIKey,
				op.Operation,
				strconv.FormatInt(op.Counts.Total, 10),
				strconv.FormatInt(op.Counts.LastMinute, 10),
				strconv.FormatInt(op.Counts.LastDay, 10),
			})
		}
	}
	return formatter.FormatTo(w, rows)
}

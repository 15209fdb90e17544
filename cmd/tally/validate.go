package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/cli"
	"tallyworks/tally/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check a configuration file for structural and semantic errors.

The validate command loads the configuration, applies environment
variable overrides, and reports every validation failure at once
rather than stopping at the first. Cron schedules are parsed here as
well; the schedulers otherwise only parse them at startup.

Examples:
  # Validate the default config
  tally validate

  # Validate a specific file
  tally validate --config /etc/tally/tally.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration invalid: %s\n\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Printf("  ✗ %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewConfigError("", fmt.Sprintf("%d validation error(s)", len(verr.Errors)))
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	var scheduleErrs []string
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			scheduleErrs = append(scheduleErrs, fmt.Sprintf("retention.schedule: %v", err))
		}
	}
	if cfg.Snapshot.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Snapshot.Schedule); err != nil {
			scheduleErrs = append(scheduleErrs, fmt.Sprintf("snapshot.schedule: %v", err))
		}
	}
	if len(scheduleErrs) > 0 {
		fmt.Printf("Configuration invalid: %s\n\n", cfgFile)
		for _, msg := range scheduleErrs {
			fmt.Printf("  ✗ %s\n", msg)
		}
		return cli.NewConfigError("", fmt.Sprintf("%d validation error(s)", len(scheduleErrs)))
	}

	fmt.Printf("✓ Configuration valid: %s\n\n", cfgFile)

	keys := make([]string, 0, len(cfg.Quotas))
	for key := range cfg.Quotas {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("Quotas:     %d key(s)\n", len(keys))
	for _, key := range keys {
		q := cfg.Quotas[key]
		fmt.Printf("  %s: per_minute=%d per_day=%d total=%d\n",
			accounting.MaskKey(key), q.PerMinute, q.PerDay, q.Total)
	}
	fmt.Printf("Snapshots:  %s\n", cfg.Snapshot.Dir)
	fmt.Printf("Retention:  max_age=%s archive=%v\n",
		cfg.Retention.MaxAge, cfg.Retention.Archive.Enabled)
	fmt.Printf("Credential: $%s\n", cfg.Credentials.EnvVar)

	return nil
}

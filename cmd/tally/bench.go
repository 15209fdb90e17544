package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/accounting/quota"
	"tallyworks/tally/pkg/cli"
	"tallyworks/tally/pkg/config"
)

var benchFlags struct {
	calls       int
	concurrency int
	duration    time.Duration
	rate        int
	operation   string
	perMinute   int
	perDay      int
	total       int64
	snapshotIn  string
	save        string
	format      string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Simulate call load against configured quotas",
	Long: `Record synthetic calls through an in-process tracker to preview
quota behavior and measure accounting overhead.

Calls are recorded against the api key resolved from the configured
environment variable, under the quotas defined in the configuration.
The per-key caps can be overridden with flags to watch enforcement
trip during the run.

With --duration the run switches to paced mode: a single worker issues
calls at a steady --rate until the duration elapses or an interrupt
arrives. When the configuration sets watch: true, quota edits to the
config file take effect mid-run.

Metrics Collected:
  - Allowed and rejected call counts, rejections broken down by kind
  - Call throughput (calls/sec)
  - Per-call latency percentiles (p50, p95, p99, max)

Examples:
  # Record 1000 calls with 8 workers
  tally bench --calls 1000 --concurrency 8

  # Watch a total cap trip partway through the run
  tally bench --calls 1000 --total 500

  # Pace 25 calls/s for 90 seconds
  tally bench --duration 90s --rate 25 --per-minute 1000

  # Continue from saved usage and persist the result
  tally bench --snapshot usage.json --save usage.json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchFlags.calls, "calls", 1000, "number of calls to record")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "concurrent workers")
	benchCmd.Flags().DurationVar(&benchFlags.duration, "duration", 0, "run for a fixed duration instead of a call count")
	benchCmd.Flags().IntVar(&benchFlags.rate, "rate", 50, "calls per second in paced mode")
	benchCmd.Flags().StringVar(&benchFlags.operation, "operation", "Get_Quote", "operation name to record")
	benchCmd.Flags().IntVar(&benchFlags.perMinute, "per-minute", 0, "override the per-minute cap for the bench key")
	benchCmd.Flags().IntVar(&benchFlags.perDay, "per-day", 0, "override the per-day cap for the bench key")
	benchCmd.Flags().Int64Var(&benchFlags.total, "total", 0, "override the total cap for the bench key")
	benchCmd.Flags().StringVar(&benchFlags.snapshotIn, "snapshot", "", "seed usage from a snapshot before running")
	benchCmd.Flags().StringVar(&benchFlags.save, "save", "", "write resulting usage to this snapshot path")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchFlags.duration > 0 && benchFlags.rate <= 0 {
		return fmt.Errorf("rate must be positive, got %d", benchFlags.rate)
	}

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	apiKey, err := cfg.APIKey()
	if err != nil {
		return cli.NewConfigError("credentials.env_var", err.Error())
	}

	logger, err := commandLogger()
	if err != nil {
		return cli.NewCommandError("bench", err)
	}

	tracker := accounting.New(accounting.Config{
		Logger:          logger,
		SnapshotDir:     cfg.Snapshot.Dir,
		PrettySnapshots: cfg.Snapshot.Pretty,
	})

	if benchFlags.snapshotIn != "" {
		if err := tracker.Load(benchFlags.snapshotIn); err != nil {
			return cli.NewCommandError("bench", err)
		}
	}

	if err := applyBenchQuotas(tracker, cfg, apiKey); err != nil {
		return cli.NewCommandError("bench", err)
	}

	tracker.Start()
	defer tracker.Stop()

	jsonOut := cli.OutputFormat(benchFlags.format) == cli.FormatJSON

	if !jsonOut {
		fmt.Println("Tally Bench")
		fmt.Println("===========")
		fmt.Printf("Key:         %s\n", accounting.MaskKey(apiKey))
		fmt.Printf("Operation:   %s\n", benchFlags.operation)
		if benchFlags.duration > 0 {
			fmt.Printf("Duration:    %s at %d calls/s\n", benchFlags.duration, benchFlags.rate)
		} else {
			fmt.Printf("Calls:       %d\n", benchFlags.calls)
			fmt.Printf("Concurrency: %d\n", benchFlags.concurrency)
		}
		if limit, ok := tracker.Quota(apiKey); ok {
			fmt.Printf("Quota:       per_minute=%d per_day=%d total=%d\n",
				limit.PerMinute, limit.PerDay, limit.Total)
		}
		fmt.Println()
	}

	var results *benchResults
	if benchFlags.duration > 0 {
		if cfg.Watch {
			watcher, werr := config.NewWatcher(&config.WatcherConfig{Path: cfgFile, Logger: logger})
			if werr != nil {
				logger.Warn("config watch unavailable", "error", werr)
			} else {
				go func() {
					if err := watcher.Watch(context.Background(), func(next *config.Config) {
						if err := applyBenchQuotas(tracker, next, apiKey); err != nil {
							logger.Warn("updated quotas not applied", "error", err)
						}
					}); err != nil {
						logger.Error("config watcher error", "error", err)
					}
				}()
				defer func() {
					if err := watcher.Stop(); err != nil {
						logger.Error("failed to stop config watcher", "error", err)
					}
				}()
			}
		}
		results = runPacedLoad(tracker, apiKey, jsonOut)
	} else {
		results = runCallLoad(tracker, apiKey, jsonOut)
	}
	summary := tracker.Summary(apiKey)

	if jsonOut {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, buildBenchReport(results, summary)); err != nil {
			return cli.NewCommandError("bench", err)
		}
	} else {
		displayBenchResults(results, summary)
	}

	if benchFlags.save != "" {
		written, err := tracker.Save(benchFlags.save)
		if err != nil {
			return cli.NewCommandError("bench", err)
		}
		if !jsonOut {
			fmt.Println()
			fmt.Printf("✓ Snapshot written: %s\n", written)
		}
	}

	return nil
}

// applyBenchQuotas installs the configured quotas, then re-applies any
// flag overrides for the bench key so they survive a config reload.
func applyBenchQuotas(tracker *accounting.Tracker, cfg *config.Config, apiKey string) error {
	// Configured quotas replace whatever the seed snapshot carried; the
	// snapshot contributes usage history, the config contributes limits.
	if err := tracker.ApplyQuotas(quotaLimits(cfg)); err != nil {
		return err
	}
	if benchFlags.perMinute > 0 || benchFlags.perDay > 0 || benchFlags.total > 0 {
		override := quota.Limit{
			PerMinute: benchFlags.perMinute,
			PerDay:    benchFlags.perDay,
			Total:     benchFlags.total,
		}
		return tracker.EnableQuota(apiKey, override)
	}
	return nil
}

// quotaLimits converts configured quotas into registry limits.
func quotaLimits(cfg *config.Config) map[string]quota.Limit {
	limits := make(map[string]quota.Limit, len(cfg.Quotas))
	for key, q := range cfg.Quotas {
		limits[key] = quota.Limit{
			PerMinute: q.PerMinute,
			PerDay:    q.PerDay,
			Total:     q.Total,
		}
	}
	return limits
}

type benchResults struct {
	calls      int
	allowed    int64
	rejected   int64
	duration   time.Duration
	latencies  []time.Duration
	rejections map[quota.Kind]int64
}

func runCallLoad(tracker *accounting.Tracker, apiKey string, quiet bool) *benchResults {
	results := &benchResults{
		calls:      benchFlags.calls,
		latencies:  make([]time.Duration, 0, benchFlags.calls),
		rejections: make(map[quota.Kind]int64),
	}

	var (
		next     int64
		allowed  int64
		rejected int64
		mu       sync.Mutex
	)

	// Progress goes to stderr in JSON mode so stdout stays parseable.
	var progress cli.ProgressReporter
	if quiet {
		progress = cli.NewProgressReporter(os.Stderr)
	} else {
		progress = cli.NewProgressReporter(nil)
	}
	progress.Start(int64(benchFlags.calls))

	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < benchFlags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n := atomic.AddInt64(&next, 1)
				if n > int64(benchFlags.calls) {
					return
				}

				callStart := time.Now()
				err := tracker.RecordIfAllowed(apiKey, benchFlags.operation)
				latency := time.Since(callStart)

				mu.Lock()
				results.latencies = append(results.latencies, latency)
				mu.Unlock()

				if err == nil {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
					var quotaErr *accounting.QuotaExceededError
					if errors.As(err, &quotaErr) {
						mu.Lock()
						results.rejections[quotaErr.Kind]++
						mu.Unlock()
					}
				}
				progress.Update(atomic.LoadInt64(&allowed) + atomic.LoadInt64(&rejected))
			}
		}()
	}
	wg.Wait()
	progress.Finish()

	results.duration = time.Since(start)
	results.allowed = allowed
	results.rejected = rejected
	return results
}

// runPacedLoad issues calls from a single goroutine at a fixed rate
// until the duration elapses or a shutdown signal arrives.
func runPacedLoad(tracker *accounting.Tracker, apiKey string, quiet bool) *benchResults {
	results := &benchResults{
		rejections: make(map[quota.Kind]int64),
	}

	ticker := time.NewTicker(time.Second / time.Duration(benchFlags.rate))
	defer ticker.Stop()

	deadline := time.After(benchFlags.duration)
	sigChan := cli.WaitForShutdown()

	if !quiet {
		fmt.Printf("Running for %s at %d calls/s (Ctrl+C stops early)\n",
			benchFlags.duration, benchFlags.rate)
	}

	start := time.Now()

loop:
	for {
		select {
		case <-deadline:
			break loop
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived signal %s, stopping\n", sig)
			break loop
		case <-ticker.C:
			callStart := time.Now()
			err := tracker.RecordIfAllowed(apiKey, benchFlags.operation)
			results.latencies = append(results.latencies, time.Since(callStart))

			if err == nil {
				results.allowed++
			} else {
				results.rejected++
				var quotaErr *accounting.QuotaExceededError
				if errors.As(err, &quotaErr) {
					results.rejections[quotaErr.Kind]++
				}
			}
		}
	}

	results.duration = time.Since(start)
	results.calls = int(results.allowed + results.rejected)
	return results
}

func displayBenchResults(results *benchResults, summary accounting.Summary) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Calls:       %d total, %d allowed, %d rejected\n",
		results.calls, results.allowed, results.rejected)
	fmt.Printf("Duration:    %.2fs\n", results.duration.Seconds())
	if results.duration > 0 {
		fmt.Printf("Throughput:  %.0f calls/s\n", float64(results.calls)/results.duration.Seconds())
	}

	if len(results.rejections) > 0 {
		fmt.Println()
		fmt.Println("Rejections:")
		for _, kind := range []quota.Kind{quota.KindTotal, quota.KindPerMinute, quota.KindPerDay} {
			if n := results.rejections[kind]; n > 0 {
				fmt.Printf("  %-10s %d\n", kind, n)
			}
		}
	}

	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := latencyPercentiles(results.latencies)

		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:     %s\n", min)
		fmt.Printf("  Mean:    %s\n", mean)
		fmt.Printf("  Median:  %s\n", median)
		fmt.Printf("  p95:     %s\n", p95)
		fmt.Printf("  p99:     %s\n", p99)
		fmt.Printf("  Max:     %s\n", max)
	}

	fmt.Println()
	fmt.Println("Usage after run:")
	fmt.Printf("  %s: total=%d last_60s=%d last_24h=%d\n",
		summary.APIKey, summary.Counts.Total, summary.Counts.LastMinute, summary.Counts.LastDay)
}

type benchReport struct {
	Calls       int                `json:"calls"`
	Allowed     int64              `json:"allowed"`
	Rejected    int64              `json:"rejected"`
	Rejections  map[string]int64   `json:"rejections,omitempty"`
	DurationMS  float64            `json:"duration_ms"`
	CallsPerSec float64            `json:"calls_per_sec"`
	Latency     benchLatency       `json:"latency"`
	Summary     accounting.Summary `json:"summary"`
}

type benchLatency struct {
	MinUS    float64 `json:"min_us"`
	MeanUS   float64 `json:"mean_us"`
	MedianUS float64 `json:"median_us"`
	P95US    float64 `json:"p95_us"`
	P99US    float64 `json:"p99_us"`
	MaxUS    float64 `json:"max_us"`
}

func buildBenchReport(results *benchResults, summary accounting.Summary) *benchReport {
	report := &benchReport{
		Calls:      results.calls,
		Allowed:    results.allowed,
		Rejected:   results.rejected,
		DurationMS: float64(results.duration.Microseconds()) / 1000,
		Summary:    summary,
	}
	if results.duration > 0 {
		report.CallsPerSec = float64(results.calls) / results.duration.Seconds()
	}
	if len(results.rejections) > 0 {
		report.Rejections = make(map[string]int64, len(results.rejections))
		for kind, n := range results.rejections {
			report.Rejections[string(kind)] = n
		}
	}
	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := latencyPercentiles(results.latencies)
		report.Latency = benchLatency{
			MinUS:    float64(min.Nanoseconds()) / 1000,
			MeanUS:   float64(mean.Nanoseconds()) / 1000,
			MedianUS: float64(median.Nanoseconds()) / 1000,
			P95US:    float64(p95.Nanoseconds()) / 1000,
			P99US:    float64(p99.Nanoseconds()) / 1000,
			MaxUS:    float64(max.Nanoseconds()) / 1000,
		}
	}
	return report
}

func latencyPercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[int(float64(len(sorted))*0.95)]
	p99 = sorted[int(float64(len(sorted))*0.99)]

	return
}

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tallyworks/tally/pkg/accounting/archive"
	"tallyworks/tally/pkg/accounting/ledger"
)

// Tracker is the subset of the accounting tracker that retention
// drives.
type Tracker interface {
	// ExpiredRecords returns records stamped strictly before the cutoff
	// without modifying state.
	ExpiredRecords(olderThan time.Time) []ledger.Record

	// PruneOlderThan compacts records stamped strictly before the
	// cutoff and returns how many were removed.
	PruneOlderThan(olderThan time.Time) int

	// Save writes a snapshot; an empty path selects an auto-named file.
	Save(path string) (string, error)
}

// Config contains configuration for the retention pruner.
type Config struct {
	// MaxAge is how long records stay in the live ledger.
	// It must be at least 24 hours so pruning never removes a record
	// still inside an active counting window. 0 disables pruning.
	MaxAge time.Duration

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the job.
	PruneSchedule string

	// SnapshotSchedule is a cron expression for automatic snapshots.
	// Empty disables the job.
	SnapshotSchedule string

	// ArchiveBeforeDelete stores expired records in the archive before
	// they are pruned. Requires an archiver.
	ArchiveBeforeDelete bool

	// Clock supplies the current time for cutoff calculations.
	// Default: ledger.SystemClock
	Clock ledger.Clock
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:              7 * 24 * time.Hour,
		PruneSchedule:       "0 3 * * *",
		SnapshotSchedule:    "",
		ArchiveBeforeDelete: false,
	}
}

// Pruner enforces the retention policy on the call ledger.
type Pruner struct {
	tracker   Tracker
	archiver  archive.Archiver
	config    *Config
	clock     ledger.Clock
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner. A nil config uses defaults.
func NewPruner(tracker Tracker, archiver archive.Archiver, config *Config) (*Pruner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAge > 0 && config.MaxAge < ledger.DayWindow {
		return nil, fmt.Errorf("retention max_age %s is shorter than the 24h counting window", config.MaxAge)
	}
	if config.ArchiveBeforeDelete && archiver == nil {
		return nil, fmt.Errorf("archive_before_delete requires an archiver")
	}

	clock := config.Clock
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	pruner := &Pruner{
		tracker:  tracker,
		archiver: archiver,
		config:   config,
		clock:    clock,
		logger:   slog.Default().With("component", "accounting.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner, nil
}

// Prune compacts records older than MaxAge out of the live ledger,
// archiving them first when configured. It returns the number of
// records removed.
//
// The cutoff is computed once, so the set of records archived and the
// set pruned are identical: new records are always stamped after the
// cutoff.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.MaxAge <= 0 {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}

	cutoff := p.clock.Now().Add(-p.config.MaxAge)
	expired := p.tracker.ExpiredRecords(cutoff)
	if len(expired) == 0 {
		p.logger.Debug("no records past retention age", "max_age", p.config.MaxAge)
		return 0, nil
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archiver.Archive(ctx, expired); err != nil {
			// Nothing is pruned when archiving fails; the records stay
			// live until the next cycle.
			return 0, fmt.Errorf("archive before delete failed: %w", err)
		}
		if total, err := p.archiver.Count(ctx); err == nil {
			p.logger.Info("records archived",
				"archived", len(expired),
				"archive_total", total,
			)
		}
	}

	removed := p.tracker.PruneOlderThan(cutoff)
	p.logger.Info("retention pruning completed",
		"removed", removed,
		"max_age", p.config.MaxAge,
	)
	return int64(removed), nil
}

// Snapshot writes an automatic snapshot and returns its path.
func (p *Pruner) Snapshot(ctx context.Context) (string, error) {
	path, err := p.tracker.Save("")
	if err != nil {
		return "", fmt.Errorf("scheduled snapshot failed: %w", err)
	}
	return path, nil
}

// Start starts the retention scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the retention scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextRun returns the time of the next scheduled job, if any.
func (p *Pruner) NextRun() *time.Time {
	return p.scheduler.NextRun()
}

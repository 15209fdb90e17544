package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the pruner's jobs on cron schedules: retention
// pruning and, when configured, automatic snapshots.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler for the given pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "accounting.scheduler"),
	}
}

// Start registers the configured jobs and begins running them.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "*/30 * * * *" - Every 30 minutes
//
// With both schedules empty the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruneSchedule := s.pruner.config.PruneSchedule
	snapshotSchedule := s.pruner.config.SnapshotSchedule

	if pruneSchedule == "" && snapshotSchedule == "" {
		s.logger.Info("no schedules configured, skipping scheduler")
		return nil
	}

	if pruneSchedule != "" {
		if _, err := cron.ParseStandard(pruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", pruneSchedule, err)
		}
		if _, err := s.cron.AddFunc(pruneSchedule, func() { s.runPrune(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
	}

	if snapshotSchedule != "" {
		if _, err := cron.ParseStandard(snapshotSchedule); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", snapshotSchedule, err)
		}
		if _, err := s.cron.AddFunc(snapshotSchedule, func() { s.runSnapshot(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule snapshots: %w", err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"prune_schedule", pruneSchedule,
		"snapshot_schedule", snapshotSchedule,
		"max_age", s.pruner.config.MaxAge,
	)

	// Stop with the surrounding application
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runPrune executes one pruning cycle.
func (s *Scheduler) runPrune(ctx context.Context) {
	removed, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("scheduled pruning completed", "removed", removed)
	} else {
		s.logger.Debug("scheduled pruning completed, nothing removed")
	}
}

// runSnapshot executes one automatic snapshot.
func (s *Scheduler) runSnapshot(ctx context.Context) {
	path, err := s.pruner.Snapshot(ctx)
	if err != nil {
		s.logger.Error("scheduled snapshot failed", "error", err)
		return
	}
	s.logger.Info("scheduled snapshot written", "path", path)
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the earliest next scheduled job time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, entry := range entries[1:] {
		if entry.Next.Before(next) {
			next = entry.Next
		}
	}
	return &next
}

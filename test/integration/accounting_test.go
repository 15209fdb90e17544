//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/accounting/archive"
	"tallyworks/tally/pkg/accounting/quota"
	"tallyworks/tally/pkg/accounting/retention"
	"tallyworks/tally/pkg/config"
)

// testClock is a settable clock for crossing window boundaries without
// sleeping.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestUsageLifecycleIntegration drives the full path from a config file
// to a restored snapshot: load config, apply quotas, record calls until
// enforcement trips, save, and reload into a fresh tracker.
func TestUsageLifecycleIntegration(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "tally.yaml")
	configYAML := fmt.Sprintf(`
quotas:
  sk-live-abcdef123456:
    per_minute: 5
    total: 100

snapshot:
  dir: %q
  pretty: true

credentials:
  env_var: TALLY_INTEGRATION_KEY
`, filepath.Join(dir, "snapshots"))
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tracker := accounting.New(accounting.Config{
		Logger:          quietLogger(),
		SnapshotDir:     cfg.Snapshot.Dir,
		PrettySnapshots: cfg.Snapshot.Pretty,
	})

	limits := make(map[string]quota.Limit, len(cfg.Quotas))
	for key, q := range cfg.Quotas {
		limits[key] = quota.Limit{PerMinute: q.PerMinute, PerDay: q.PerDay, Total: q.Total}
	}
	if err := tracker.ApplyQuotas(limits); err != nil {
		t.Fatalf("failed to apply quotas: %v", err)
	}

	tracker.Start()
	defer tracker.Stop()

	const key = "sk-live-abcdef123456"
	allowed := 0
	for i := 0; i < 10; i++ {
		if err := tracker.RecordIfAllowed(key, "Get_Quote"); err == nil {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("allowed = %d with per_minute 5, want 5", allowed)
	}

	written, err := tracker.Save("")
	if err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	restored := accounting.New(accounting.Config{Logger: quietLogger()})
	if err := restored.Load(written); err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}

	if total := restored.Counts(key, "").Total; total != 5 {
		t.Errorf("restored Total = %d, want 5", total)
	}
	if limit, ok := restored.Quota(key); !ok || limit.PerMinute != 5 {
		t.Errorf("restored quota = %+v ok=%v, want per_minute 5", limit, ok)
	}
}

// TestRetentionArchivePipelineIntegration exercises the pruner against
// a live tracker and a SQLite archive: expired records move into the
// archive, the ledger compacts, and all-time totals survive as carried
// counts.
func TestRetentionArchivePipelineIntegration(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{now: time.Now().Add(-72 * time.Hour)}

	tracker := accounting.New(accounting.Config{
		Clock:       clock,
		Logger:      quietLogger(),
		SnapshotDir: dir,
	})
	tracker.Start()
	defer tracker.Stop()

	const key = "sk-live-abcdef123456"
	for i := 0; i < 6; i++ {
		if err := tracker.RecordCall(key, "Get_Quote"); err != nil {
			t.Fatalf("failed to record call: %v", err)
		}
		clock.Advance(time.Minute)
	}

	// Jump far past the retention age so every record is expired.
	clock.Advance(72 * time.Hour)

	archiver, err := archive.NewSQLiteArchive(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer archiver.Close()

	pruner, err := retention.NewPruner(tracker, archiver, &retention.Config{
		MaxAge:              48 * time.Hour,
		ArchiveBeforeDelete: true,
		Clock:               clock,
	})
	if err != nil {
		t.Fatalf("failed to create pruner: %v", err)
	}

	removed, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 6 {
		t.Errorf("removed = %d, want 6", removed)
	}

	if n := tracker.RecordCount(); n != 0 {
		t.Errorf("RecordCount() = %d after prune, want 0", n)
	}
	if total := tracker.Counts(key, "").Total; total != 6 {
		t.Errorf("Total = %d after prune, want 6 carried", total)
	}

	archived, err := archiver.Count(context.Background())
	if err != nil {
		t.Fatalf("archive count failed: %v", err)
	}
	if archived != 6 {
		t.Errorf("archive Count() = %d, want 6", archived)
	}
}

// TestConcurrentEnforcementIntegration hammers a total cap from many
// goroutines and verifies that check-and-record admits exactly the cap.
func TestConcurrentEnforcementIntegration(t *testing.T) {
	tracker := accounting.New(accounting.Config{Logger: quietLogger()})

	const key = "sk-live-abcdef123456"
	if err := tracker.EnableQuota(key, quota.Limit{Total: 100}); err != nil {
		t.Fatalf("failed to enable quota: %v", err)
	}

	tracker.Start()
	defer tracker.Stop()

	var allowed int64
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := tracker.RecordIfAllowed(key, "Submit_Order"); err == nil {
					atomic.AddInt64(&allowed, 1)
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d with total cap 100, want exactly 100", allowed)
	}
	if total := tracker.Counts(key, "").Total; total != 100 {
		t.Errorf("Total = %d, want 100", total)
	}
}

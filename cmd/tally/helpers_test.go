package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tallyworks/tally/pkg/accounting"
	"tallyworks/tally/pkg/config"
)

// fixedClock stamps every record with the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// writeTestConfig writes a minimal valid config file and returns its
// path.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()

	content := `quotas:
  sk-live-abcdef123456:
    per_minute: 60
    per_day: 1000
snapshot:
  dir: ` + filepath.Join(dir, "snapshots") + `
retention:
  max_age: 48h
credentials:
  env_var: TALLY_API_KEY
`
	path := filepath.Join(dir, "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// pinTestConfig installs cfg as the singleton regardless of what any
// earlier test loaded. The one-time initializer is consumed first so
// command-level Initialize calls become no-ops.
func pinTestConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	_ = config.Initialize("")
	prev := config.GetConfig()
	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(prev) })
}

// testSnapshot records calls stamped at the given instant and saves
// them to a snapshot file under dir.
func testSnapshot(t *testing.T, dir string, at time.Time, calls int) string {
	t.Helper()

	tracker := accounting.New(accounting.Config{
		Clock:  fixedClock{now: at},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	tracker.Start()
	for i := 0; i < calls; i++ {
		op := "Get_Quote"
		if i%2 == 1 {
			op = "Submit_Order"
		}
		if err := tracker.RecordCall("sk-live-abcdef123456", op); err != nil {
			t.Fatalf("RecordCall failed: %v", err)
		}
	}

	path := filepath.Join(dir, "usage.json")
	if _, err := tracker.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

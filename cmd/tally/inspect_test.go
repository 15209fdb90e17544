package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tallyworks/tally/pkg/accounting/ledger"
	"tallyworks/tally/pkg/accounting/quota"
	"tallyworks/tally/pkg/accounting/snapshot"
)

func TestRunInspectSnapshot(t *testing.T) {
	path := testSnapshot(t, t.TempDir(), time.Now().Add(-time.Hour), 3)

	inspectFlags.snapshotPath = path
	inspectFlags.format = "text"

	if err := runInspect(nil, nil); err != nil {
		t.Errorf("runInspect() returned error: %v", err)
	}
}

func TestRunInspectMissingFile(t *testing.T) {
	inspectFlags.snapshotPath = filepath.Join(t.TempDir(), "missing.json")
	inspectFlags.format = "text"

	if err := runInspect(nil, nil); err == nil {
		t.Error("runInspect() with missing file should return error")
	}
}

func TestRunInspectJSONFormat(t *testing.T) {
	path := testSnapshot(t, t.TempDir(), time.Now(), 2)

	inspectFlags.snapshotPath = path
	inspectFlags.format = "json"

	if err := runInspect(nil, nil); err != nil {
		t.Errorf("runInspect() with JSON format returned error: %v", err)
	}
}

func TestBuildSnapshotReport(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := &snapshot.Document{
		Version:   1,
		ID:        "test-id",
		CreatedAt: now,
		Records: []ledger.Record{
			{Timestamp: now.Add(-2 * time.Hour), APIKey: "sk-live-abcdef123456", Operation: "Get_Quote"},
			{Timestamp: now.Add(-1 * time.Hour), APIKey: "sk-live-abcdef123456", Operation: "Get_Quote"},
		},
		Carried: []ledger.CarriedCount{
			{APIKey: "sk-old-abcdef123456", Operation: "Get_Quote", Count: 10},
		},
		Quotas: map[string]quota.Limit{"sk-live-abcdef123456": {PerMinute: 60}},
	}

	report := buildSnapshotReport("usage.json", doc)

	if report.Records != 2 {
		t.Errorf("Records = %d, want 2", report.Records)
	}
	if report.CarriedCalls != 10 {
		t.Errorf("CarriedCalls = %d, want 10", report.CarriedCalls)
	}
	if report.Quotas != 1 {
		t.Errorf("Quotas = %d, want 1", report.Quotas)
	}
	if len(report.Keys) != 2 {
		t.Fatalf("Keys = %v, want 2 entries", report.Keys)
	}
	for _, key := range report.Keys {
		if strings.Contains(key, "abcdef") {
			t.Errorf("report key %q is not masked", key)
		}
	}

	if report.OldestRecord == nil || !report.OldestRecord.Equal(now.Add(-2*time.Hour)) {
		t.Errorf("OldestRecord = %v, want %v", report.OldestRecord, now.Add(-2*time.Hour))
	}
	if report.NewestRecord == nil || !report.NewestRecord.Equal(now.Add(-1*time.Hour)) {
		t.Errorf("NewestRecord = %v, want %v", report.NewestRecord, now.Add(-1*time.Hour))
	}
}

func TestBuildSnapshotReportEmptyDocument(t *testing.T) {
	doc := &snapshot.Document{
		Version:   1,
		ID:        "empty",
		CreatedAt: time.Now(),
		Records:   []ledger.Record{},
		Quotas:    map[string]quota.Limit{},
	}

	report := buildSnapshotReport("empty.json", doc)

	if report.Records != 0 {
		t.Errorf("Records = %d, want 0", report.Records)
	}
	if report.OldestRecord != nil || report.NewestRecord != nil {
		t.Error("empty document should not report a record time span")
	}
}

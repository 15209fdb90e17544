package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tallyworks/tally/pkg/accounting/ledger"
)

func sampleRecords() []ledger.Record {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []ledger.Record{
		{Timestamp: base, APIKey: "key-a", Operation: "Get_Quote"},
		{Timestamp: base.Add(time.Second), APIKey: "key-a", Operation: "List_Exchange"},
		{Timestamp: base.Add(2 * time.Second), APIKey: "key-b", Operation: "Get_Quote"},
	}
}

// ============================================================================
// Memory Archive Tests
// ============================================================================

func TestMemoryArchive_Basic(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArchive()

	if err := m.Archive(ctx, sampleRecords()); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	n, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 archived records, got %d", n)
	}
}

func TestMemoryArchive_EmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArchive()

	if err := m.Archive(ctx, nil); err != nil {
		t.Fatalf("Archive of empty slice failed: %v", err)
	}
	if n, _ := m.Count(ctx); n != 0 {
		t.Errorf("Expected 0 records, got %d", n)
	}
}

func TestMemoryArchive_RecordsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArchive()
	m.Archive(ctx, sampleRecords())

	got := m.Records()
	got[0].APIKey = "mutated"

	if m.Records()[0].APIKey != "key-a" {
		t.Error("Expected archive contents unaffected by mutating returned slice")
	}
}

// ============================================================================
// SQLite Archive Tests
// ============================================================================

func TestSQLiteArchive_ArchiveAndCount(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	a, err := NewSQLiteArchive(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteArchive failed: %v", err)
	}
	defer a.Close()

	if err := a.Archive(ctx, sampleRecords()); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	n, err := a.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 archived records, got %d", n)
	}
}

func TestSQLiteArchive_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	a, err := NewSQLiteArchive(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteArchive failed: %v", err)
	}
	if err := a.Archive(ctx, sampleRecords()); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteArchive(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("Count after reopen failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 records to survive reopen, got %d", n)
	}
}

func TestSQLiteArchive_AppendsAcrossBatches(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	a, err := NewSQLiteArchive(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteArchive failed: %v", err)
	}
	defer a.Close()

	a.Archive(ctx, sampleRecords())
	a.Archive(ctx, sampleRecords()[:1])

	if n, _ := a.Count(ctx); n != 4 {
		t.Errorf("Expected 4 records after two batches, got %d", n)
	}
}

func TestSQLiteArchive_CloseIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	a, err := NewSQLiteArchive(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteArchive failed: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestSQLiteArchive_EmptyPathRejected(t *testing.T) {
	if _, err := NewSQLiteArchive(""); err == nil {
		t.Error("Expected error for empty db path")
	}
}

package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"tallyworks/tally/pkg/accounting/ledger"
)

// SQLiteArchive implements Archiver using SQLite for persistence.
// It is suitable for single-instance deployments where archived records
// must survive restarts.
//
// The archive uses a write-ahead log (WAL) with periodic checkpointing
// to balance write performance with durability.
type SQLiteArchive struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.Mutex
	closeOnce          sync.Once

	insertStmt *sql.Stmt
	countStmt  *sql.Stmt
}

// SQLiteArchiveConfig configures the SQLite archive.
type SQLiteArchiveConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteArchive creates a SQLite archive with default settings.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	return NewSQLiteArchiveWithConfig(SQLiteArchiveConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteArchiveWithConfig creates a SQLite archive with custom
// configuration.
func NewSQLiteArchiveWithConfig(cfg SQLiteArchiveConfig) (*SQLiteArchive, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	a := &SQLiteArchive{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := a.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go a.checkpointLoop()

	return a, nil
}

// initSchema creates the archive schema if it doesn't exist.
func (a *SQLiteArchive) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS call_records (
		archived_at INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL,
		api_key TEXT NOT NULL,
		operation TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_call_records_recorded_at ON call_records(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_call_records_api_key ON call_records(api_key);
	`

	_, err := a.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (a *SQLiteArchive) prepareStatements() error {
	var err error

	a.insertStmt, err = a.db.Prepare(`
		INSERT INTO call_records (archived_at, recorded_at, api_key, operation)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	a.countStmt, err = a.db.Prepare(`SELECT COUNT(*) FROM call_records`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	return nil
}

// Archive stores the given records in one transaction. Timestamps are
// stored with nanosecond precision so ordering within a second is
// preserved.
func (a *SQLiteArchive) Archive(ctx context.Context, records []ledger.Record) error {
	if len(records) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.StmtContext(ctx, a.insertStmt)
	archivedAt := time.Now().UnixNano()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, archivedAt, rec.Timestamp.UnixNano(), rec.APIKey, rec.Operation); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to archive record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// Count reports the number of archived records.
func (a *SQLiteArchive) Count(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n int64
	if err := a.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Close releases resources held by the archive.
// Close is idempotent and safe to call multiple times.
func (a *SQLiteArchive) Close() error {
	var closeErr error

	a.closeOnce.Do(func() {
		close(a.done)

		if a.insertStmt != nil {
			a.insertStmt.Close()
		}
		if a.countStmt != nil {
			a.countStmt.Close()
		}

		if a.db != nil {
			// Run final checkpoint
			_, _ = a.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = a.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (a *SQLiteArchive) checkpointLoop() {
	ticker := time.NewTicker(a.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = a.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-a.done:
			return
		}
	}
}

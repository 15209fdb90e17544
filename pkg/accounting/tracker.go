package accounting

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"tallyworks/tally/pkg/accounting/ledger"
	"tallyworks/tally/pkg/accounting/quota"
	"tallyworks/tally/pkg/accounting/snapshot"
)

// Config configures a Tracker. The zero value is usable: system clock,
// default logger, no metrics, snapshots under data/snapshots.
type Config struct {
	// Clock supplies record timestamps.
	// Default: ledger.SystemClock
	Clock ledger.Clock

	// Logger receives diagnostic output.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives accounting metrics. Nil disables instrumentation.
	Metrics *Metrics

	// SnapshotDir is where auto-named snapshots are written when Save is
	// called with an empty path.
	// Default: "data/snapshots"
	SnapshotDir string

	// PrettySnapshots enables indented snapshot JSON.
	PrettySnapshots bool
}

// Tracker is the accounting façade: it owns the call ledger and the
// quota registry and coordinates every compound operation across them.
//
// The tracker records nothing until Start is called and stops recording
// after Stop; counting, checking, and summaries work in either state.
// Counts survive Stop/Start cycles and are cleared only by Reset or
// replaced wholesale by Load.
//
// # Thread Safety
//
// Tracker is thread-safe. A single RWMutex spans the ledger and the
// registry, so compound operations like RecordIfAllowed are atomic
// with respect to concurrent callers.
type Tracker struct {
	clock       ledger.Clock
	codec       *snapshot.Codec
	logger      *slog.Logger
	metrics     *Metrics
	snapshotDir string

	mu       sync.RWMutex
	active   bool
	ledger   *ledger.Ledger
	registry *quota.Registry
}

// New creates a stopped tracker with empty state.
func New(cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = ledger.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = "data/snapshots"
	}

	return &Tracker{
		clock:       cfg.Clock,
		codec:       snapshot.NewCodec(cfg.PrettySnapshots),
		logger:      cfg.Logger.With("component", "accounting"),
		metrics:     cfg.Metrics,
		snapshotDir: cfg.SnapshotDir,
		ledger:      ledger.New(cfg.Clock),
		registry:    quota.NewRegistry(),
	}
}

// Start begins accepting calls. Starting an already-started tracker is
// a no-op. Counts accumulated before a restart are preserved.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return
	}
	t.active = true
	t.logger.Info("accounting tracker started")
}

// Stop stops accepting calls. Stopping an already-stopped tracker is a
// no-op. Accumulated counts remain queryable.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}
	t.active = false
	t.logger.Info("accounting tracker stopped")
}

// IsActive reports whether the tracker is currently accepting calls.
func (t *Tracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// RecordCall appends one call for the api key and operation. The
// operation name is stored verbatim; the tracker never derives names.
// Returns ErrInactive when the tracker is stopped.
//
// RecordCall does not consult quotas; use RecordIfAllowed for gated
// recording.
func (t *Tracker) RecordCall(apiKey, operation string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordLocked(apiKey, operation)
}

// recordLocked appends one call. Caller must hold the write lock.
func (t *Tracker) recordLocked(apiKey, operation string) error {
	if !t.active {
		return ErrInactive
	}

	t.ledger.Append(apiKey, operation)
	if t.metrics != nil {
		t.metrics.RecordCall(MaskKey(apiKey))
	}
	t.logger.Debug("call recorded", "api_key", MaskKey(apiKey), "operation", operation)
	return nil
}

// CheckQuota reports whether the api key may make another call right
// now. A nil error means the call would be within quota. Violations
// come back as *QuotaExceededError naming the most severe exhausted
// dimension: the total cap first, then the 60-second window, then the
// 24-hour window.
//
// An empty operation compares the key's aggregate counts against its
// limits; a non-empty operation narrows the counts to that operation
// while the limits stay per key.
//
// Checking is read-only: it works whether or not the tracker is
// started and never consumes quota. Keys without an enabled quota are
// always allowed.
func (t *Tracker) CheckQuota(apiKey, operation string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkLocked(apiKey, operation); err != nil {
		return err
	}
	return nil
}

// checkLocked evaluates the quota for one key against current counts.
// Caller must hold at least the read lock.
func (t *Tracker) checkLocked(apiKey, operation string) *QuotaExceededError {
	start := time.Now()
	defer func() {
		if t.metrics != nil {
			t.metrics.ObserveCheckDuration(time.Since(start).Seconds())
		}
	}()

	limit, ok := t.registry.Get(apiKey)
	if !ok || limit.IsZero() {
		if t.metrics != nil {
			t.metrics.RecordQuotaCheck(true)
		}
		return nil
	}

	counts := t.ledger.Count(apiKey, operation)
	masked := MaskKey(apiKey)
	// Window gauges track the key as a whole; operation-scoped checks
	// must not shrink them.
	if t.metrics != nil && operation == "" {
		t.metrics.UpdateWindowUsage(masked, "60s", counts.LastMinute)
		t.metrics.UpdateWindowUsage(masked, "24h", counts.LastDay)
	}

	// A dimension is exhausted once the current count reaches its cap:
	// the call being checked would land beyond the limit.
	var violation *QuotaExceededError
	switch {
	case limit.Total > 0 && counts.Total >= limit.Total:
		violation = &QuotaExceededError{
			APIKey:  masked,
			Kind:    quota.KindTotal,
			Current: counts.Total,
			Limit:   limit.Total,
			Err:     ErrQuotaExceeded,
		}
	case limit.PerMinute > 0 && counts.LastMinute >= int64(limit.PerMinute):
		violation = &QuotaExceededError{
			APIKey:  masked,
			Kind:    quota.KindPerMinute,
			Current: counts.LastMinute,
			Limit:   int64(limit.PerMinute),
			Err:     ErrQuotaExceeded,
		}
	case limit.PerDay > 0 && counts.LastDay >= int64(limit.PerDay):
		violation = &QuotaExceededError{
			APIKey:  masked,
			Kind:    quota.KindPerDay,
			Current: counts.LastDay,
			Limit:   int64(limit.PerDay),
			Err:     ErrQuotaExceeded,
		}
	}

	if violation == nil {
		if t.metrics != nil {
			t.metrics.RecordQuotaCheck(true)
		}
		return nil
	}

	if t.metrics != nil {
		t.metrics.RecordQuotaCheck(false)
		t.metrics.RecordQuotaRejection(masked, violation.Kind)
	}
	t.logger.Warn("quota exceeded",
		"api_key", masked,
		"kind", string(violation.Kind),
		"current", violation.Current,
		"limit", violation.Limit)
	return violation
}

// RecordIfAllowed checks the quota and, only when allowed, records the
// call. Check and record happen under one critical section, so two
// concurrent callers racing for the last slot of a quota cannot both
// get it.
//
// Returns ErrInactive when the tracker is stopped, a
// *QuotaExceededError when over quota, or nil after recording.
func (t *Tracker) RecordIfAllowed(apiKey, operation string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return ErrInactive
	}
	// The gate is the key's aggregate usage; per-key limits bound the
	// key as a whole regardless of which operation lands the call.
	if err := t.checkLocked(apiKey, ""); err != nil {
		return err
	}
	return t.recordLocked(apiKey, operation)
}

// Counts returns the aggregate counts for one api key. An empty
// operation aggregates across all operations.
func (t *Tracker) Counts(apiKey, operation string) ledger.AggregateCount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Count(apiKey, operation)
}

// Summary returns the usage report for one api key. Keys never seen
// report zero counts rather than an error.
func (t *Tracker) Summary(apiKey string) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.summaryLocked(apiKey)
}

// Summaries returns reports for every tracked key, ordered by key.
func (t *Tracker) Summaries() []Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := t.ledger.Keys()
	out := make([]Summary, 0, len(keys))
	for _, key := range keys {
		out = append(out, t.summaryLocked(key))
	}
	return out
}

// summaryLocked builds one key's report. Caller must hold at least the
// read lock.
func (t *Tracker) summaryLocked(apiKey string) Summary {
	global, perOp := t.ledger.Breakdown(apiKey)

	ops := make([]OperationCount, 0, len(perOp))
	for op, agg := range perOp {
		ops = append(ops, OperationCount{Operation: op, Counts: agg})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Operation < ops[j].Operation })

	s := Summary{
		APIKey:     MaskKey(apiKey),
		Counts:     global,
		Operations: ops,
	}
	if limit, ok := t.registry.Get(apiKey); ok {
		s.Quota = &limit
	}
	return s
}

// Reset clears all counts for one api key, or for every key when
// apiKey is empty, including totals carried over from pruned records.
// Configured quotas stay enabled either way.
func (t *Tracker) Reset(apiKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ledger.Reset(apiKey)
	if apiKey == "" {
		t.logger.Info("usage reset", "scope", "all")
		return
	}
	t.logger.Info("usage reset", "api_key", MaskKey(apiKey))
}

// EnableQuota sets the limit for an api key, replacing any existing
// limit. Enforcement applies to calls recorded from now on; history is
// not rewritten.
func (t *Tracker) EnableQuota(apiKey string, limit quota.Limit) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.registry.Enable(apiKey, limit); err != nil {
		return err
	}
	t.logger.Info("quota enabled",
		"api_key", MaskKey(apiKey),
		"per_minute", limit.PerMinute,
		"per_day", limit.PerDay,
		"total", limit.Total)
	return nil
}

// DisableQuota removes the limit for an api key. The key keeps being
// counted; it just stops being blocked.
func (t *Tracker) DisableQuota(apiKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.registry.Disable(apiKey)
	t.logger.Info("quota disabled", "api_key", MaskKey(apiKey))
}

// Quota returns the limit for an api key and whether one is enabled.
func (t *Tracker) Quota(apiKey string) (quota.Limit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.Get(apiKey)
}

// ApplyQuotas swaps the whole quota set in one step, validating every
// limit before any is applied. Configuration reloads go through here.
func (t *Tracker) ApplyQuotas(limits map[string]quota.Limit) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.registry.Replace(limits); err != nil {
		return err
	}
	t.logger.Info("quotas applied", "keys", len(limits))
	return nil
}

// Save writes a snapshot of current state and returns the path it was
// written to. An empty path selects an auto-named file under the
// configured snapshot directory.
//
// State is captured under the read lock but file I/O happens outside
// it, so a slow disk does not stall recording.
func (t *Tracker) Save(path string) (string, error) {
	t.mu.RLock()
	records, carried := t.ledger.State()
	quotas := t.registry.All()
	now := t.clock.Now()
	t.mu.RUnlock()

	if path == "" {
		path = snapshot.GeneratePath(t.snapshotDir, now)
	}

	doc := snapshot.NewDocument(records, carried, quotas, now)
	if err := t.codec.Write(path, doc); err != nil {
		if t.metrics != nil {
			t.metrics.RecordSnapshot("save", err)
		}
		t.logger.Error("snapshot save failed", "path", path, "error", err)
		return "", err
	}

	if t.metrics != nil {
		t.metrics.RecordSnapshot("save", nil)
	}
	t.logger.Info("snapshot saved",
		"path", path,
		"snapshot_id", doc.ID,
		"records", len(records),
		"quotas", len(quotas))
	return path, nil
}

// Load replaces in-memory state with the contents of a snapshot file.
// The document is read and fully validated before anything is swapped,
// so a failed load leaves current state exactly as it was. Records,
// carried counts, and quotas replace together.
func (t *Tracker) Load(path string) error {
	doc, err := t.codec.Read(path)
	if err != nil {
		if t.metrics != nil {
			t.metrics.RecordSnapshot("load", err)
		}
		t.logger.Error("snapshot load failed", "path", path, "error", err)
		return err
	}

	next := ledger.New(t.clock)
	next.Restore(doc.Records, doc.Carried)

	nextRegistry := quota.NewRegistry()
	if err := nextRegistry.Replace(doc.Quotas); err != nil {
		err = snapshot.NewSnapshotError("read", path, err)
		if t.metrics != nil {
			t.metrics.RecordSnapshot("load", err)
		}
		t.logger.Error("snapshot load failed", "path", path, "error", err)
		return err
	}

	t.mu.Lock()
	t.ledger = next
	t.registry = nextRegistry
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.RecordSnapshot("load", nil)
	}
	t.logger.Info("snapshot loaded",
		"path", path,
		"snapshot_id", doc.ID,
		"records", len(doc.Records),
		"quotas", len(doc.Quotas))
	return nil
}

// ExpiredRecords returns copies of records stamped strictly before the
// cutoff without modifying state. Retention archives these before
// pruning them.
func (t *Tracker) ExpiredRecords(olderThan time.Time) []ledger.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.ExpiredBefore(olderThan)
}

// PruneOlderThan compacts records stamped strictly before the cutoff
// into carried totals and returns how many records were removed.
// All-time totals are unchanged by pruning.
func (t *Tracker) PruneOlderThan(olderThan time.Time) int {
	t.mu.Lock()
	removed := t.ledger.Prune(olderThan)
	t.mu.Unlock()

	if removed > 0 {
		if t.metrics != nil {
			t.metrics.RecordPruned(removed)
		}
		t.logger.Info("records pruned", "removed", removed)
	}
	return removed
}

// RecordCount reports the number of live records across all keys.
func (t *Tracker) RecordCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Len()
}

package ledger

import (
	"sort"
	"sync"
	"time"
)

// Ledger is an append-only log of recorded API calls.
//
// Every call becomes one Record. Counting walks the live records at
// query time, so a record contributes to the 60-second and 24-hour
// windows for exactly as long as it falls inside them. Prune removes
// records older than a cutoff but folds their counts into carried
// per-key, per-operation totals, keeping all-time counts stable across
// compaction.
//
// # Thread Safety
//
// Ledger is thread-safe using sync.RWMutex.
type Ledger struct {
	clock Clock

	mu      sync.RWMutex
	records []Record
	carried map[string]map[string]int64 // api key -> operation -> pruned count
}

// New creates an empty ledger. A nil clock defaults to SystemClock.
func New(clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ledger{
		clock:   clock,
		carried: make(map[string]map[string]int64),
	}
}

// Append records one call for the given api key and operation, stamped
// with the ledger clock, and returns the stored record.
func (l *Ledger) Append(apiKey, operation string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Timestamp: l.clock.Now(),
		APIKey:    apiKey,
		Operation: operation,
	}
	l.records = append(l.records, rec)
	return rec
}

// Count returns the aggregate counts for one api key. An empty
// operation counts calls across all operations; otherwise only records
// matching the operation contribute.
//
// Window membership is inclusive at the lower bound: a record stamped
// exactly 60 seconds ago still counts toward the 60-second window.
func (l *Ledger) Count(apiKey, operation string) AggregateCount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countLocked(apiKey, operation, l.clock.Now())
}

// countLocked computes aggregate counts as of the given instant.
// Caller must hold at least a read lock.
func (l *Ledger) countLocked(apiKey, operation string, now time.Time) AggregateCount {
	minuteCutoff := now.Add(-MinuteWindow)
	dayCutoff := now.Add(-DayWindow)

	var agg AggregateCount
	for i := range l.records {
		rec := &l.records[i]
		if rec.APIKey != apiKey {
			continue
		}
		if operation != "" && rec.Operation != operation {
			continue
		}
		agg.Total++
		if !rec.Timestamp.Before(dayCutoff) {
			agg.LastDay++
		}
		if !rec.Timestamp.Before(minuteCutoff) {
			agg.LastMinute++
		}
	}

	if ops, ok := l.carried[apiKey]; ok {
		if operation == "" {
			for _, n := range ops {
				agg.Total += n
			}
		} else {
			agg.Total += ops[operation]
		}
	}
	return agg
}

// Breakdown returns the key-wide aggregate plus per-operation
// aggregates for one api key, computed in a single pass. Operations
// known only through carried counts still appear, with zero window
// counts.
func (l *Ledger) Breakdown(apiKey string) (AggregateCount, map[string]AggregateCount) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.clock.Now()
	minuteCutoff := now.Add(-MinuteWindow)
	dayCutoff := now.Add(-DayWindow)

	var global AggregateCount
	perOp := make(map[string]AggregateCount)
	for i := range l.records {
		rec := &l.records[i]
		if rec.APIKey != apiKey {
			continue
		}
		agg := perOp[rec.Operation]
		global.Total++
		agg.Total++
		if !rec.Timestamp.Before(dayCutoff) {
			global.LastDay++
			agg.LastDay++
		}
		if !rec.Timestamp.Before(minuteCutoff) {
			global.LastMinute++
			agg.LastMinute++
		}
		perOp[rec.Operation] = agg
	}

	for op, n := range l.carried[apiKey] {
		agg := perOp[op]
		agg.Total += n
		perOp[op] = agg
		global.Total += n
	}
	return global, perOp
}

// Keys returns every api key with live records or carried counts,
// sorted for deterministic iteration.
func (l *Ledger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	for i := range l.records {
		seen[l.records[i].APIKey] = struct{}{}
	}
	for key := range l.carried {
		seen[key] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Operations returns every operation recorded for one api key,
// including operations surviving only as carried counts, sorted.
func (l *Ledger) Operations(apiKey string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	for i := range l.records {
		if l.records[i].APIKey == apiKey {
			seen[l.records[i].Operation] = struct{}{}
		}
	}
	for op := range l.carried[apiKey] {
		seen[op] = struct{}{}
	}

	ops := make([]string, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// ExpiredBefore returns copies of all records stamped strictly before
// the cutoff, in insertion order. It does not modify the ledger;
// retention uses it to archive records ahead of pruning.
func (l *Ledger) ExpiredBefore(cutoff time.Time) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var expired []Record
	for i := range l.records {
		if l.records[i].Timestamp.Before(cutoff) {
			expired = append(expired, l.records[i])
		}
	}
	return expired
}

// Prune removes records stamped strictly before the cutoff and folds
// their counts into the carried totals, so all-time counts are
// unchanged by compaction. It returns the number of records removed.
//
// A record stamped exactly at the cutoff is retained, matching the
// inclusive window bound used by Count.
func (l *Ledger) Prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	kept := make([]Record, 0, len(l.records))
	for i := range l.records {
		rec := l.records[i]
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
			continue
		}
		ops, ok := l.carried[rec.APIKey]
		if !ok {
			ops = make(map[string]int64)
			l.carried[rec.APIKey] = ops
		}
		ops[rec.Operation]++
		removed++
	}
	if removed == 0 {
		return 0
	}
	l.records = kept
	return removed
}

// Reset removes records and carried counts for one api key, or for
// every key when apiKey is empty. Counts restart from zero; other keys
// are unaffected by a scoped reset.
func (l *Ledger) Reset(apiKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if apiKey == "" {
		l.records = nil
		l.carried = make(map[string]map[string]int64)
		return
	}

	kept := l.records[:0]
	for i := range l.records {
		if l.records[i].APIKey != apiKey {
			kept = append(kept, l.records[i])
		}
	}
	l.records = kept
	delete(l.carried, apiKey)
}

// Len reports the number of live records across all keys.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// State returns copies of the live records and carried counts for
// serialization. Carried counts are sorted by api key then operation so
// snapshots are deterministic.
func (l *Ledger) State() ([]Record, []CarriedCount) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]Record, len(l.records))
	copy(records, l.records)

	var carried []CarriedCount
	for key, ops := range l.carried {
		for op, n := range ops {
			if n == 0 {
				continue
			}
			carried = append(carried, CarriedCount{APIKey: key, Operation: op, Count: n})
		}
	}
	sort.Slice(carried, func(i, j int) bool {
		if carried[i].APIKey != carried[j].APIKey {
			return carried[i].APIKey < carried[j].APIKey
		}
		return carried[i].Operation < carried[j].Operation
	})
	return records, carried
}

// Restore replaces the ledger contents with the given records and
// carried counts. Inputs are copied; callers keep ownership of their
// slices.
func (l *Ledger) Restore(records []Record, carried []CarriedCount) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make([]Record, len(records))
	copy(l.records, records)

	l.carried = make(map[string]map[string]int64)
	for _, c := range carried {
		if c.Count == 0 {
			continue
		}
		ops, ok := l.carried[c.APIKey]
		if !ok {
			ops = make(map[string]int64)
			l.carried[c.APIKey] = ops
		}
		ops[c.Operation] += c.Count
	}
}

package ledger

import (
	"sync"
	"testing"
	"time"
)

// manualClock is a Clock whose time moves only when the test advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ============================================================================
// Counting Tests
// ============================================================================

func TestLedger_CountBasic(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	l.Append("key-a", "Get_Quote")
	l.Append("key-a", "List_Exchange")
	l.Append("key-b", "Get_Quote")

	agg := l.Count("key-a", "")
	if agg.Total != 3 {
		t.Errorf("Expected total 3 for key-a, got %d", agg.Total)
	}
	if agg.LastMinute != 3 || agg.LastDay != 3 {
		t.Errorf("Expected all 3 calls in both windows, got 60s=%d 24h=%d", agg.LastMinute, agg.LastDay)
	}

	agg = l.Count("key-a", "Get_Quote")
	if agg.Total != 2 {
		t.Errorf("Expected total 2 for key-a/Get_Quote, got %d", agg.Total)
	}

	agg = l.Count("key-b", "")
	if agg.Total != 1 {
		t.Errorf("Expected total 1 for key-b, got %d", agg.Total)
	}
}

func TestLedger_CountUnknownKey(t *testing.T) {
	l := New(newManualClock(testStart))

	agg := l.Count("never-seen", "")
	if agg.Total != 0 || agg.LastMinute != 0 || agg.LastDay != 0 {
		t.Errorf("Expected zero aggregate for unknown key, got %+v", agg)
	}
}

func TestLedger_OperationScopedNeverExceedsGlobal(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	ops := []string{"Get_Quote", "List_Exchange", "Get_Quote", "Get_Candles"}
	for _, op := range ops {
		l.Append("key-a", op)
		clock.Advance(time.Second)
	}

	global := l.Count("key-a", "")
	for _, op := range []string{"Get_Quote", "List_Exchange", "Get_Candles"} {
		scoped := l.Count("key-a", op)
		if scoped.Total > global.Total {
			t.Errorf("Operation %s total %d exceeds global %d", op, scoped.Total, global.Total)
		}
		if scoped.LastMinute > global.LastMinute {
			t.Errorf("Operation %s 60s count %d exceeds global %d", op, scoped.LastMinute, global.LastMinute)
		}
	}
}

func TestLedger_MinuteWindowAgesOut(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	clock.Advance(30 * time.Second)
	l.Append("key-a", "Get_Quote")

	agg := l.Count("key-a", "")
	if agg.LastMinute != 2 {
		t.Errorf("Expected 2 calls in 60s window, got %d", agg.LastMinute)
	}

	// First record is now exactly 61s old, second 31s old.
	clock.Advance(31 * time.Second)
	agg = l.Count("key-a", "")
	if agg.LastMinute != 1 {
		t.Errorf("Expected 1 call in 60s window after aging, got %d", agg.LastMinute)
	}
	if agg.Total != 2 {
		t.Errorf("Expected total unchanged at 2, got %d", agg.Total)
	}
	if agg.LastDay != 2 {
		t.Errorf("Expected 2 calls still in 24h window, got %d", agg.LastDay)
	}
}

func TestLedger_WindowBoundaryInclusive(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")

	// Exactly 60s later the record sits on the window edge and counts.
	clock.Advance(60 * time.Second)
	if got := l.Count("key-a", "").LastMinute; got != 1 {
		t.Errorf("Expected record on window edge to count, got %d", got)
	}

	// One step past the edge it ages out.
	clock.Advance(time.Nanosecond)
	if got := l.Count("key-a", "").LastMinute; got != 0 {
		t.Errorf("Expected record past window edge to age out, got %d", got)
	}
}

func TestLedger_DayWindowAgesOut(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	clock.Advance(25 * time.Hour)
	l.Append("key-a", "Get_Quote")

	agg := l.Count("key-a", "")
	if agg.LastDay != 1 {
		t.Errorf("Expected 1 call in 24h window, got %d", agg.LastDay)
	}
	if agg.Total != 2 {
		t.Errorf("Expected total 2, got %d", agg.Total)
	}
}

func TestLedger_Breakdown(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	l.Append("key-a", "Get_Quote")
	l.Append("key-a", "List_Exchange")
	l.Append("key-b", "Get_Quote")

	global, perOp := l.Breakdown("key-a")
	if global.Total != 3 {
		t.Errorf("Expected global total 3, got %d", global.Total)
	}
	if len(perOp) != 2 {
		t.Errorf("Expected 2 operations, got %d", len(perOp))
	}
	if perOp["Get_Quote"].Total != 2 {
		t.Errorf("Expected Get_Quote total 2, got %d", perOp["Get_Quote"].Total)
	}
	if perOp["List_Exchange"].Total != 1 {
		t.Errorf("Expected List_Exchange total 1, got %d", perOp["List_Exchange"].Total)
	}

	var sum int64
	for _, agg := range perOp {
		sum += agg.Total
	}
	if sum != global.Total {
		t.Errorf("Expected per-op totals to sum to global %d, got %d", global.Total, sum)
	}
}

// ============================================================================
// Pruning Tests
// ============================================================================

func TestLedger_PruneCarriesTotals(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	l.Append("key-a", "List_Exchange")
	clock.Advance(48 * time.Hour)
	l.Append("key-a", "Get_Quote")

	before := l.Count("key-a", "")
	if before.Total != 3 {
		t.Fatalf("Expected total 3 before prune, got %d", before.Total)
	}

	removed := l.Prune(clock.Now().Add(-DayWindow))
	if removed != 2 {
		t.Errorf("Expected 2 records pruned, got %d", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Expected 1 live record, got %d", l.Len())
	}

	after := l.Count("key-a", "")
	if after.Total != 3 {
		t.Errorf("Expected total preserved at 3 after prune, got %d", after.Total)
	}
	if after.LastDay != 1 {
		t.Errorf("Expected 1 call in 24h window after prune, got %d", after.LastDay)
	}

	// Per-operation totals survive through carried counts too.
	if got := l.Count("key-a", "List_Exchange").Total; got != 1 {
		t.Errorf("Expected List_Exchange total 1 after prune, got %d", got)
	}
}

func TestLedger_PruneBoundaryExact(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	cutoff := clock.Now()

	// Record stamped exactly at the cutoff is retained.
	if removed := l.Prune(cutoff); removed != 0 {
		t.Errorf("Expected no records pruned at exact cutoff, got %d", removed)
	}
	if removed := l.Prune(cutoff.Add(time.Nanosecond)); removed != 1 {
		t.Errorf("Expected 1 record pruned past cutoff, got %d", removed)
	}
}

func TestLedger_ExpiredBeforeDoesNotMutate(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	clock.Advance(48 * time.Hour)
	l.Append("key-a", "Get_Quote")

	expired := l.ExpiredBefore(clock.Now().Add(-DayWindow))
	if len(expired) != 1 {
		t.Fatalf("Expected 1 expired record, got %d", len(expired))
	}
	if expired[0].APIKey != "key-a" || expired[0].Operation != "Get_Quote" {
		t.Errorf("Unexpected expired record: %+v", expired[0])
	}
	if l.Len() != 2 {
		t.Errorf("Expected ledger untouched with 2 records, got %d", l.Len())
	}
}

func TestLedger_OperationsIncludeCarriedOnly(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "List_Exchange")
	clock.Advance(48 * time.Hour)
	l.Append("key-a", "Get_Quote")

	l.Prune(clock.Now().Add(-DayWindow))

	ops := l.Operations("key-a")
	if len(ops) != 2 || ops[0] != "Get_Quote" || ops[1] != "List_Exchange" {
		t.Errorf("Expected sorted operations [Get_Quote List_Exchange], got %v", ops)
	}
}

// ============================================================================
// Reset Tests
// ============================================================================

func TestLedger_ResetScopedToKey(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	l.Append("key-b", "Get_Quote")

	l.Reset("key-a")

	if got := l.Count("key-a", "").Total; got != 0 {
		t.Errorf("Expected key-a total 0 after reset, got %d", got)
	}
	if got := l.Count("key-b", "").Total; got != 1 {
		t.Errorf("Expected key-b unaffected with total 1, got %d", got)
	}
}

func TestLedger_ResetAllKeys(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	l.Append("key-b", "Submit_Order")
	clock.Advance(48 * time.Hour)
	l.Prune(clock.Now().Add(-DayWindow))
	l.Append("key-c", "Get_Quote")

	l.Reset("")

	if got := l.Len(); got != 0 {
		t.Errorf("Expected no live records after full reset, got %d", got)
	}
	for _, key := range []string{"key-a", "key-b", "key-c"} {
		if got := l.Count(key, "").Total; got != 0 {
			t.Errorf("Expected %s total 0 after full reset, got %d", key, got)
		}
	}
}

func TestLedger_ResetClearsCarriedCounts(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	clock.Advance(48 * time.Hour)
	l.Prune(clock.Now().Add(-DayWindow))

	if got := l.Count("key-a", "").Total; got != 1 {
		t.Fatalf("Expected carried total 1 before reset, got %d", got)
	}

	l.Reset("key-a")
	if got := l.Count("key-a", "").Total; got != 0 {
		t.Errorf("Expected total 0 after reset, got %d", got)
	}
}

// ============================================================================
// State and Restore Tests
// ============================================================================

func TestLedger_StateRestoreRoundTrip(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-a", "Get_Quote")
	clock.Advance(48 * time.Hour)
	l.Append("key-a", "List_Exchange")
	l.Append("key-b", "Get_Quote")
	l.Prune(clock.Now().Add(-DayWindow))

	records, carried := l.State()
	if len(records) != 2 {
		t.Fatalf("Expected 2 live records in state, got %d", len(records))
	}
	if len(carried) != 1 {
		t.Fatalf("Expected 1 carried count in state, got %d", len(carried))
	}

	restored := New(clock)
	restored.Restore(records, carried)

	for _, key := range []string{"key-a", "key-b"} {
		want := l.Count(key, "")
		got := restored.Count(key, "")
		if got != want {
			t.Errorf("Key %s: expected %+v after restore, got %+v", key, want, got)
		}
	}
}

func TestLedger_KeysSorted(t *testing.T) {
	clock := newManualClock(testStart)
	l := New(clock)

	l.Append("key-c", "Get_Quote")
	l.Append("key-a", "Get_Quote")
	l.Append("key-b", "Get_Quote")

	keys := l.Keys()
	if len(keys) != 3 || keys[0] != "key-a" || keys[1] != "key-b" || keys[2] != "key-c" {
		t.Errorf("Expected sorted keys [key-a key-b key-c], got %v", keys)
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestLedger_ConcurrentAppend(t *testing.T) {
	l := New(nil)

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				l.Append("key-a", "Get_Quote")
			}
		}()
	}
	wg.Wait()

	if got := l.Count("key-a", "").Total; got != goroutines*perGoroutine {
		t.Errorf("Expected %d total calls, got %d", goroutines*perGoroutine, got)
	}
}

func TestLedger_ConcurrentMixedReadWrite(t *testing.T) {
	l := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Append("key-a", "Get_Quote")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Count("key-a", "")
				l.Keys()
			}
		}()
	}
	wg.Wait()

	if got := l.Count("key-a", "").Total; got != 250 {
		t.Errorf("Expected 250 total calls, got %d", got)
	}
}

// Package ledger implements the append-only call log that backs all
// usage counting.
//
// # Overview
//
// Each recorded API call is stored as a Record. Counts are derived on
// demand by walking the log, never cached: the 60-second and 24-hour
// windows are evaluated against the ledger clock at query time, so a
// record ages out of a window without any bookkeeping. All-time totals
// survive pruning through carried counts that fold removed records into
// per-key, per-operation tallies.
//
// Timestamps come from an injected Clock. Production code uses
// SystemClock; tests substitute a manual clock to step across window
// boundaries deterministically.
package ledger

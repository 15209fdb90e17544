// Package accounting provides client-side call accounting and quota
// enforcement for API usage.
//
// # Overview
//
// The accounting package tracks every API call made through it and
// enforces per-key usage quotas before calls happen. It supports:
//
//   - Per-key, per-operation call counting (60s window, 24h window, all-time)
//   - Quota enforcement with a fixed severity order (total cap first)
//   - Atomic check-and-record for concurrent callers
//   - Versioned JSON snapshots with atomic load-replace
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - ledger: append-only call log with windowed counting
//   - quota: per-key limits and the enforcement registry
//   - snapshot: versioned JSON persistence
//   - archive: storage for records expired out of the live ledger
//   - retention: scheduled pruning and automatic snapshots
//
// # Usage
//
//	tracker := accounting.New(accounting.Config{})
//	tracker.Start()
//
//	tracker.EnableQuota("api-key-123", quota.Limit{PerMinute: 10, PerDay: 500})
//
//	if err := tracker.RecordIfAllowed("api-key-123", "Get_Quote"); err != nil {
//	    var quotaErr *accounting.QuotaExceededError
//	    if errors.As(err, &quotaErr) {
//	        return fmt.Errorf("over quota on %s", quotaErr.Kind)
//	    }
//	    return err
//	}
//
// Api keys are stored unmasked for counting but masked on every display
// surface: summaries, error messages, logs, and metric labels.
package accounting

package accounting

import (
	"errors"
	"fmt"

	"tallyworks/tally/pkg/accounting/ledger"
	"tallyworks/tally/pkg/accounting/quota"
)

// Error types for recording failures and quota violations.
var (
	// ErrInactive is returned when a call is recorded while the tracker
	// is stopped.
	ErrInactive = errors.New("accounting tracker is not started")

	// ErrQuotaExceeded is the base error wrapped by every
	// QuotaExceededError, for errors.Is checks.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// QuotaExceededError provides detailed context about a quota violation.
//
// When several dimensions are exhausted at once, Kind names the most
// severe one: the total cap outranks the 60-second window, which
// outranks the 24-hour window.
type QuotaExceededError struct {
	// APIKey is the violating key, masked for display.
	APIKey string

	// Kind is the exhausted limit dimension.
	Kind quota.Kind

	// Current is the count that met or passed the limit.
	Current int64

	// Limit is the configured cap for the dimension.
	Limit int64

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota %s exceeded for %s: current=%d, limit=%d",
		e.Kind, e.APIKey, e.Current, e.Limit)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *QuotaExceededError) Unwrap() error {
	return e.Err
}

// OperationCount pairs an operation name with its aggregate counts.
type OperationCount struct {
	Operation string                `json:"operation"`
	Counts    ledger.AggregateCount `json:"counts"`
}

// Summary is the usage report for one api key.
type Summary struct {
	// APIKey is masked; raw keys never appear in summaries.
	APIKey string `json:"api_key"`

	// Counts aggregates all operations for the key.
	Counts ledger.AggregateCount `json:"counts"`

	// Operations breaks the counts down per operation, sorted by name.
	Operations []OperationCount `json:"operations"`

	// Quota is the enforced limit, if enforcement is enabled for the key.
	Quota *quota.Limit `json:"quota,omitempty"`
}

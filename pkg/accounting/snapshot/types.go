package snapshot

import (
	"errors"
	"fmt"
	"time"

	"tallyworks/tally/pkg/accounting/ledger"
	"tallyworks/tally/pkg/accounting/quota"
)

// FormatVersion is the document version this codec writes. Readers
// accept this version and any newer one whose required sections are
// still present.
const FormatVersion = 1

// ErrInvalidDocument is returned when a snapshot file parses but does
// not carry a usable document.
var ErrInvalidDocument = errors.New("invalid snapshot document")

// Document is the durable form of tracker state.
type Document struct {
	// Version is the document format version. Documents with a version
	// below 1 are rejected.
	Version int `json:"version"`

	// ID uniquely identifies this snapshot.
	ID string `json:"id"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`

	// Records are the live call records at snapshot time.
	Records []ledger.Record `json:"records"`

	// Carried are the pruned-record totals at snapshot time.
	Carried []ledger.CarriedCount `json:"carried_counts,omitempty"`

	// Quotas are the enforced limits keyed by api key.
	Quotas map[string]quota.Limit `json:"quotas"`
}

// SnapshotError describes a failed snapshot read or write.
type SnapshotError struct {
	// Op is "read" or "write".
	Op string

	// Path is the snapshot file involved.
	Path string

	// Err is the underlying cause.
	Err error
}

// NewSnapshotError creates a snapshot error.
func NewSnapshotError(op, path string, err error) *SnapshotError {
	return &SnapshotError{Op: op, Path: path, Err: err}
}

// Error implements the error interface.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SnapshotError) Unwrap() error {
	return e.Err
}

package archive

import (
	"context"

	"tallyworks/tally/pkg/accounting/ledger"
)

// Archiver receives records evicted from the live ledger.
//
// Archive must be durable before it returns: retention deletes the
// records from the ledger only after a successful archive.
type Archiver interface {
	// Archive stores the given records. Archiving an empty slice is a
	// no-op.
	Archive(ctx context.Context, records []ledger.Record) error

	// Count reports the number of archived records.
	Count(ctx context.Context) (int64, error)

	// Close releases any resources held by the archiver.
	Close() error
}

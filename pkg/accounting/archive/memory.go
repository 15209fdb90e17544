package archive

import (
	"context"
	"sync"

	"tallyworks/tally/pkg/accounting/ledger"
)

// MemoryArchive implements Archiver with in-memory storage. Archived
// records are lost on restart; it exists for tests and for deployments
// that only need pruning, not a durable archive.
type MemoryArchive struct {
	mu      sync.RWMutex
	records []ledger.Record
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

// Archive stores copies of the given records.
func (m *MemoryArchive) Archive(ctx context.Context, records []ledger.Record) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

// Count reports the number of archived records.
func (m *MemoryArchive) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

// Records returns a copy of everything archived so far.
func (m *MemoryArchive) Records() []ledger.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op for the in-memory archive.
func (m *MemoryArchive) Close() error {
	return nil
}

package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tallyworks/tally/pkg/accounting/ledger"
	"tallyworks/tally/pkg/accounting/quota"
)

// Codec reads and writes snapshot documents as JSON files.
type Codec struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewCodec creates a codec.
func NewCodec(pretty bool) *Codec {
	return &Codec{Pretty: pretty}
}

// NewDocument assembles a current-version document from tracker state.
// The ID is a fresh UUID.
func NewDocument(records []ledger.Record, carried []ledger.CarriedCount, quotas map[string]quota.Limit, createdAt time.Time) *Document {
	return &Document{
		Version:   FormatVersion,
		ID:        uuid.New().String(),
		CreatedAt: createdAt,
		Records:   records,
		Carried:   carried,
		Quotas:    quotas,
	}
}

// GeneratePath builds an auto-named snapshot path under dir, embedding
// the creation time and a short unique suffix.
func GeneratePath(dir string, now time.Time) string {
	name := fmt.Sprintf("usage-%s-%s.json", now.Format("2006-01-02-150405"), uuid.New().String()[:8])
	return filepath.Join(dir, name)
}

// Write serializes the document to path atomically: the bytes land in a
// temp file first and are renamed into place, so readers never observe
// a partial snapshot.
//
// Nil sections are normalized to empty ones before writing; a valid
// document always carries its records and quotas sections.
func (c *Codec) Write(path string, doc *Document) error {
	if doc.Records == nil {
		doc.Records = []ledger.Record{}
	}
	if doc.Quotas == nil {
		doc.Quotas = map[string]quota.Limit{}
	}

	var data []byte
	var err error
	if c.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return NewSnapshotError("write", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return NewSnapshotError("write", path, err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return NewSnapshotError("write", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return NewSnapshotError("write", path, err)
	}
	return nil
}

// Read loads and validates a snapshot document. Unknown JSON fields are
// ignored, so documents from newer releases load as long as the
// records and quotas sections exist and the version is at least 1.
func (c *Codec) Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewSnapshotError("read", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewSnapshotError("read", path, fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}

	if doc.Version < FormatVersion {
		return nil, NewSnapshotError("read", path, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, doc.Version))
	}
	if doc.Records == nil {
		return nil, NewSnapshotError("read", path, fmt.Errorf("%w: missing records section", ErrInvalidDocument))
	}
	if doc.Quotas == nil {
		return nil, NewSnapshotError("read", path, fmt.Errorf("%w: missing quotas section", ErrInvalidDocument))
	}
	return &doc, nil
}

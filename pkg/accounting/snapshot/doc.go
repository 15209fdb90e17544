// Package snapshot serializes tracker state to versioned JSON
// documents and loads it back.
//
// A Document captures the live records, carried counts, and quota
// limits at one instant, tagged with a format version and a unique ID.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated snapshot behind. Reads ignore unknown fields, so
// documents written by newer releases still load as long as the
// sections this release needs are present.
package snapshot

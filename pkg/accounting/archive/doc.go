// Package archive stores call records that retention has expired out
// of the live ledger.
//
// Archived records no longer contribute to quota checks or summaries;
// their totals survive in the ledger's carried counts. The archive
// exists for offline inspection and audit. Two implementations are
// provided: a SQLite archive for durable single-instance deployments
// and an in-memory archive for tests.
package archive

// Package retention bounds the live ledger's memory by pruning old
// records on a schedule, optionally archiving them first.
//
// Pruning never changes observable counts: the ledger folds pruned
// records into carried totals, and the retention age is constrained to
// at least the 24-hour counting window so no record still inside an
// active window is ever removed. A second schedule can write automatic
// snapshots between prunes.
package retention

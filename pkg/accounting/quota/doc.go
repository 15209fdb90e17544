// Package quota holds per-key usage limits and the registry that
// tracks which keys have enforcement enabled.
//
// A Limit caps calls along three dimensions: the rolling 60-second
// window, the rolling 24-hour window, and the all-time total. Any
// dimension left at zero is unlimited. Keys absent from the registry
// are tracked but never blocked.
package quota

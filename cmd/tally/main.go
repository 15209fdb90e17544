// Tally is a client-side usage accounting and quota enforcement engine
// for metered third-party APIs.
//
// It tracks every outbound API call in rolling 60-second and 24-hour
// windows, enforces per-key quotas before calls are made, and persists
// usage as versioned JSON snapshots that survive restarts.
//
// Usage:
//
//	# Validate a configuration file
//	tally validate --config tally.yaml
//
//	# Print per-key usage summaries from a snapshot
//	tally summary --snapshot data/snapshots/usage-2025-06-01-120000-a1b2c3d4.json
//
//	# Inspect a snapshot file
//	tally inspect --snapshot data/snapshots/usage-2025-06-01-120000-a1b2c3d4.json
//
//	# Prune aged records out of a snapshot, archiving them first
//	tally prune --snapshot old.json --output pruned.json
//
//	# Simulate call load against configured quotas
//	tally bench --calls 1000 --concurrency 8
//
//	# Show version information
//	tally version
package main

func main() {
	Execute()
}

package ledger

import "time"

// Clock supplies the timestamps stamped onto appended records.
//
// Injecting a clock keeps window arithmetic testable: a test clock can
// be stepped across the 60-second or 24-hour boundary without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

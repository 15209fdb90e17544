package quota

import (
	"errors"
	"fmt"
)

// Kind identifies which limit dimension a quota check tripped.
type Kind string

const (
	// KindTotal is the absolute cap on calls ever recorded for a key.
	KindTotal Kind = "total"

	// KindPerMinute is the rolling 60-second window cap.
	KindPerMinute Kind = "calls_60s"

	// KindPerDay is the rolling 24-hour window cap.
	KindPerDay Kind = "calls_24h"
)

// ErrInvalidLimit is returned when a limit carries a negative value.
var ErrInvalidLimit = errors.New("invalid quota limit")

// Limit caps call usage for one api key.
//
// A zero value in any field means that dimension is unlimited; the zero
// Limit enforces nothing. Negative values are rejected at registration
// rather than silently treated as unlimited.
type Limit struct {
	// PerMinute caps calls inside the rolling 60-second window.
	PerMinute int `json:"per_minute,omitempty" yaml:"per_minute"`

	// PerDay caps calls inside the rolling 24-hour window.
	PerDay int `json:"per_day,omitempty" yaml:"per_day"`

	// Total caps calls ever recorded for the key. Unlike the window
	// caps, reaching it blocks the key until an explicit reset.
	Total int64 `json:"total,omitempty" yaml:"total"`
}

// Validate checks the limit for negative values.
func (l Limit) Validate() error {
	if l.PerMinute < 0 {
		return fmt.Errorf("%w: per_minute must not be negative, got %d", ErrInvalidLimit, l.PerMinute)
	}
	if l.PerDay < 0 {
		return fmt.Errorf("%w: per_day must not be negative, got %d", ErrInvalidLimit, l.PerDay)
	}
	if l.Total < 0 {
		return fmt.Errorf("%w: total must not be negative, got %d", ErrInvalidLimit, l.Total)
	}
	return nil
}

// IsZero reports whether the limit enforces nothing.
func (l Limit) IsZero() bool {
	return l.PerMinute == 0 && l.PerDay == 0 && l.Total == 0
}

package ledger

import "time"

// Window durations used for sliding-window counting. All windowed
// counts are measured against these two spans; the all-time total is
// not a window.
const (
	// MinuteWindow is the span of the rolling 60-second window.
	MinuteWindow = 60 * time.Second

	// DayWindow is the span of the rolling 24-hour window.
	DayWindow = 24 * time.Hour
)

// Record is a single recorded API call.
//
// Records are immutable once appended and leave the ledger only through
// pruning or a per-key reset. The api key is stored unmasked; masking
// is a display concern handled by callers.
type Record struct {
	// Timestamp is when the call was recorded, per the ledger clock.
	Timestamp time.Time `json:"timestamp"`

	// APIKey identifies the caller the record counts against.
	APIKey string `json:"api_key"`

	// Operation is the canonical operation name supplied by the caller,
	// stored verbatim (e.g. "Get_Quote").
	Operation string `json:"operation"`
}

// AggregateCount holds derived call counts for one api key, or for one
// (api key, operation) pair. It is computed on demand and never stored.
type AggregateCount struct {
	// Total is the all-time count, including calls whose records were
	// pruned. It only decreases on an explicit reset.
	Total int64 `json:"total"`

	// LastMinute counts calls inside the rolling 60-second window.
	LastMinute int64 `json:"last_60s"`

	// LastDay counts calls inside the rolling 24-hour window.
	LastDay int64 `json:"last_24h"`
}

// CarriedCount preserves the all-time tally of pruned records for one
// (api key, operation) pair. Carried counts contribute to Total but
// never to windowed counts.
type CarriedCount struct {
	APIKey    string `json:"api_key"`
	Operation string `json:"operation"`
	Count     int64  `json:"count"`
}

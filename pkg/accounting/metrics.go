package accounting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tallyworks/tally/pkg/accounting/quota"
)

// Metrics contains Prometheus metrics for the accounting package.
//
// Api key labels always carry the masked form of the key; raw keys
// never reach the metrics registry.
type Metrics struct {
	quotaChecks     *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
	callsRecorded   *prometheus.CounterVec
	recordsPruned   prometheus.Counter
	snapshotOps     *prometheus.CounterVec
	windowUsage     *prometheus.GaugeVec
	checkDuration   prometheus.Histogram
}

// NewMetrics creates a Metrics instance registered with the given
// registerer. A nil registerer falls back to the default Prometheus
// registry; tests pass their own registry to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		quotaChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_accounting_quota_checks_total",
				Help: "Total number of quota checks performed",
			},
			[]string{"result"},
		),

		quotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_accounting_quota_rejections_total",
				Help: "Total number of quota violations by limit kind",
			},
			[]string{"api_key", "kind"},
		),

		callsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_accounting_calls_recorded_total",
				Help: "Total number of calls recorded",
			},
			[]string{"api_key"},
		),

		recordsPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tally_accounting_records_pruned_total",
				Help: "Total number of records compacted out of the live ledger",
			},
		),

		snapshotOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_accounting_snapshot_operations_total",
				Help: "Total number of snapshot save and load operations",
			},
			[]string{"operation", "result"},
		),

		windowUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tally_accounting_window_usage",
				Help: "Calls observed in each counting window at the last quota check",
			},
			[]string{"api_key", "window"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tally_accounting_check_duration_seconds",
				Help:    "Duration of quota checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}
}

// RecordQuotaCheck records the outcome of one quota check.
func (m *Metrics) RecordQuotaCheck(allowed bool) {
	result := "allowed"
	if !allowed {
		result = "blocked"
	}
	m.quotaChecks.WithLabelValues(result).Inc()
}

// RecordQuotaRejection records a quota violation.
func (m *Metrics) RecordQuotaRejection(maskedKey string, kind quota.Kind) {
	m.quotaRejections.WithLabelValues(maskedKey, string(kind)).Inc()
}

// RecordCall records one accepted call.
func (m *Metrics) RecordCall(maskedKey string) {
	m.callsRecorded.WithLabelValues(maskedKey).Inc()
}

// RecordPruned records how many records a prune pass removed.
func (m *Metrics) RecordPruned(n int) {
	m.recordsPruned.Add(float64(n))
}

// RecordSnapshot records a snapshot save or load outcome.
func (m *Metrics) RecordSnapshot(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshotOps.WithLabelValues(operation, result).Inc()
}

// UpdateWindowUsage updates the observed window counts for a key.
func (m *Metrics) UpdateWindowUsage(maskedKey string, window string, count int64) {
	m.windowUsage.WithLabelValues(maskedKey, window).Set(float64(count))
}

// ObserveCheckDuration records the duration of one quota check.
func (m *Metrics) ObserveCheckDuration(seconds float64) {
	m.checkDuration.Observe(seconds)
}

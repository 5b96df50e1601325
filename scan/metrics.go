package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rowsScanned counts records tested against a predicate.
	rowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recfilter_rows_scanned_total",
			Help: "Total number of records evaluated against a predicate",
		},
		[]string{"strategy"},
	)
	// rowsMatched counts records selected by a predicate.
	rowsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recfilter_rows_matched_total",
			Help: "Total number of records selected by a predicate",
		},
		[]string{"strategy"},
	)
	malformedPrograms = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recfilter_malformed_programs_total",
			Help: "Total number of program executions aborted by a malformed program",
		},
	)
)

func observe(strategy Strategy, scanned, matched int64) {
	rowsScanned.WithLabelValues(string(strategy)).Add(float64(scanned))
	rowsMatched.WithLabelValues(string(strategy)).Add(float64(matched))
}

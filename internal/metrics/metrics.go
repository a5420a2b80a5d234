// Package metrics holds the server-side prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Collection store operations by op and result.",
		},
		[]string{"op", "result"},
	)

	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Image uploads by outcome (transcoded, original, rejected, failed).",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "heartbook",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time spent ingesting one upload.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ImageCleanups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook",
			Subsystem: "ingest",
			Name:      "cleanups_total",
			Help:      "Best-effort image removals after record deletes.",
		},
		[]string{"result"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "heartbook",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)

// Result maps an error to the "ok"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

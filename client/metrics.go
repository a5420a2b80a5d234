package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook_client",
			Name:      "writes_enqueued_total",
			Help:      "Collection writes and deletes accepted into the write queue.",
		},
		[]string{"collection"},
	)

	writesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook_client",
			Name:      "writes_failed_total",
			Help:      "Collection writes and deletes that failed after all retries.",
		},
		[]string{"collection"},
	)

	loadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heartbook_client",
			Name:      "load_failures_total",
			Help:      "Collections that could not be fetched and were started empty.",
		},
		[]string{"collection"},
	)
)

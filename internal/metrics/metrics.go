// Package metrics registers the search subsystem's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IndexJobsTotal counts processed index jobs by kind and outcome.
	IndexJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_index_jobs_total",
			Help: "Index jobs processed, labelled by kind (upsert, delete, bulk) and outcome (ok, stale, error).",
		},
		[]string{"kind", "outcome"},
	)

	// IndexQueueDepth tracks jobs waiting in the worker pool queue.
	IndexQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_index_queue_depth",
			Help: "Number of index jobs waiting in the worker queue.",
		},
	)

	// SearchDuration observes end-to-end search latency by entity type.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_request_duration_seconds",
			Help:    "End-to-end search duration by entity type.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"type"},
	)

	// SearchResultsTotal counts searches by whether they returned hits.
	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Search requests, labelled by result (hits, empty, error).",
		},
		[]string{"result"},
	)

	// ReindexRunsTotal counts full reindex runs by outcome.
	ReindexRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_reindex_runs_total",
			Help: "Full reindex runs, labelled by outcome (completed, failed, rejected).",
		},
		[]string{"outcome"},
	)

	// ReindexDocuments tracks documents written during the current reindex run.
	ReindexDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_reindex_documents",
			Help: "Documents written into the shadow generation by the current reindex run.",
		},
	)

	// EventsConsumedTotal counts catalog events by topic and outcome.
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_events_consumed_total",
			Help: "Catalog change events consumed, labelled by topic and outcome (ok, skipped, error).",
		},
		[]string{"topic", "outcome"},
	)
)

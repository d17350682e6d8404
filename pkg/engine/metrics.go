package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GraphbarNotificationsTotal counts writer notifications received
	GraphbarNotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphbar_notifications_total",
			Help: "Total number of committed-write notifications received",
		},
	)

	// GraphbarPollsTotal counts executed queries by outcome
	GraphbarPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphbar_polls_total",
			Help: "Total number of poll steps that ran a query, by outcome",
		},
		[]string{"outcome"},
	)

	// GraphbarPollSkippedTotal counts ticks where nothing changed
	GraphbarPollSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphbar_poll_skipped_total",
			Help: "Total number of poll steps skipped because the flag was clean",
		},
	)

	// GraphbarQueryDurationSeconds tracks the count query latency
	GraphbarQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphbar_query_duration_seconds",
			Help:    "Duration of the node and relationship count query",
			Buckets: prometheus.DefBuckets,
		},
	)

	// GraphbarBindingBound is 1 while a connection is bound
	GraphbarBindingBound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphbar_binding_bound",
			Help: "Whether a database connection is currently bound",
		},
	)

	// GraphbarBindingRejectedTotal counts providers rejected by the bind policy
	GraphbarBindingRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphbar_binding_rejected_total",
			Help: "Total number of providers rejected because another one was bound",
		},
	)

	// GraphbarNodes is the last observed node count
	GraphbarNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphbar_nodes",
			Help: "Last observed number of nodes",
		},
	)

	// GraphbarRels is the last observed relationship count
	GraphbarRels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphbar_rels",
			Help: "Last observed number of relationships",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(GraphbarNotificationsTotal)
	prometheus.MustRegister(GraphbarPollsTotal)
	prometheus.MustRegister(GraphbarPollSkippedTotal)
	prometheus.MustRegister(GraphbarQueryDurationSeconds)
	prometheus.MustRegister(GraphbarBindingBound)
	prometheus.MustRegister(GraphbarBindingRejectedTotal)
	prometheus.MustRegister(GraphbarNodes)
	prometheus.MustRegister(GraphbarRels)
}

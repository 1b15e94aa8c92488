package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RepositoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uatrack_repository_writes_total",
			Help: "Total number of repository writes by entity, operation and result",
		},
		[]string{"entity", "op", "result"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uatrack_validation_failures_total",
			Help: "Writes rejected by pre-write validation",
		},
		[]string{"entity", "field"},
	)

	CampaignTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uatrack_campaign_transitions_total",
			Help: "Campaign status transitions",
		},
		[]string{"from", "to"},
	)

	RunTreeSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uatrack_run_tree_size",
			Help:    "Rows created by one campaign run cascade",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"level"},
	)

	BugHistoryEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uatrack_bug_history_entries_total",
			Help: "Bug history entries appended by status",
		},
		[]string{"status"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uatrack_outbox_events_total",
			Help: "Outbox events handled by the relay",
		},
		[]string{"event_type", "result"},
	)
)

const (
	ResultOK        = "ok"
	ResultIntegrity = "integrity"
	ResultError     = "error"
)

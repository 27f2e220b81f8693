// Package metrics exposes Prometheus instrumentation for the moderation service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Release reasons for the ReleasedTotal counter.
const (
	ReleaseUnassign = "unassign"
	ReleaseOffline  = "offline"
	ReleaseRecall   = "recall"
	ReleaseDelete   = "delete"
)

var (
	// AssignmentsTotal counts content items moved into a reviewer queue.
	AssignmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_assignments_total",
			Help: "Content items assigned to reviewers",
		},
	)

	// DecisionsTotal counts review decisions by action.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_decisions_total",
			Help: "Review decisions recorded, by action",
		},
		[]string{"action"},
	)

	// AuditActionsTotal counts overturn, restore and re-review operations.
	AuditActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_audit_actions_total",
			Help: "Audit operations applied to review records, by operation",
		},
		[]string{"operation"},
	)

	// ReleasedTotal counts assignments returned to the pending pool, by reason.
	ReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_released_total",
			Help: "Assignments released back to pending, by reason",
		},
		[]string{"reason"},
	)

	// QueueGauges tracks the size of the moderation pools.
	QueueGauges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moderation_queue_items",
			Help: "Content items by workflow status",
		},
		[]string{"status"},
	)

	// OnlineReviewers tracks how many reviewers are online.
	OnlineReviewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moderation_online_reviewers",
			Help: "Reviewers currently online",
		},
	)

	// FillDuration tracks how long a fill sweep over all reviewers takes.
	FillDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moderation_fill_duration_seconds",
			Help:    "Duration of fill sweeps over all online reviewers",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestDuration tracks API latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moderation_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// SetQueueDepth publishes the current pool sizes.
func SetQueueDepth(pending, underReview, online int) {
	QueueGauges.WithLabelValues("pending").Set(float64(pending))
	QueueGauges.WithLabelValues("under_review").Set(float64(underReview))
	OnlineReviewers.Set(float64(online))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

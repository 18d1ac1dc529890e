package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReconcileMetrics() {
	r.ReconcileRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_reconcile_requests_total",
			Help: "Model service requests by operation and outcome",
		},
		[]string{"operation", "status"}, // success, failure
	)

	r.ReconcileRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvas_reconcile_request_duration_seconds",
			Help:    "Time from optimistic apply to server reconciliation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.ReconcileRollbacksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_reconcile_rollbacks_total",
			Help: "Optimistic changes reverted after a failed request",
		},
		[]string{"operation"},
	)

	r.ReconcilePending = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_reconcile_pending_operations",
			Help: "Operations awaiting a server response",
		},
	)

	r.ReconcileQueuedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_reconcile_queued_total",
			Help: "Operations queued behind a pending operation on the same entity",
		},
		[]string{"operation"},
	)
}

package metrics

import (
	"runtime"
	"time"
)

// ObserveRouterPass records one router pass
func (r *Registry) ObserveRouterPass(d time.Duration, rendered, unresolved int) {
	r.RouterPassesTotal.Inc()
	r.RouterPassDuration.Observe(d.Seconds())
	r.RouterRenderedEdges.Set(float64(rendered))
	r.RouterUnresolvedTotal.Add(float64(unresolved))
}

// RecordSuppressedPass records a router pass skipped during grouping
func (r *Registry) RecordSuppressedPass() {
	r.RouterSuppressedTotal.Inc()
}

// ObserveRequest records a reconciled model service request
func (r *Registry) ObserveRequest(op string, ok bool, d time.Duration) {
	status := "success"
	if !ok {
		status = "failure"
	}
	r.ReconcileRequestsTotal.WithLabelValues(op, status).Inc()
	r.ReconcileRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveRollback records a reverted optimistic change
func (r *Registry) ObserveRollback(op string) {
	r.ReconcileRollbacksTotal.WithLabelValues(op).Inc()
}

// ObservePending sets the number of pending operations
func (r *Registry) ObservePending(n int) {
	r.ReconcilePending.Set(float64(n))
}

// ObserveQueued records an operation queued behind another
func (r *Registry) ObserveQueued(op string) {
	r.ReconcileQueuedTotal.WithLabelValues(op).Inc()
}

// ObserveInvalidTransition records an ignored input event
func (r *Registry) ObserveInvalidTransition(event string) {
	r.InteractionInvalidTransitionsTotal.WithLabelValues(event).Inc()
}

// RecordConflict records a store consistency conflict
func (r *Registry) RecordConflict(origin string) {
	r.StoreConflictsTotal.WithLabelValues(origin).Inc()
}

// UpdateStoreMetrics sets the entity counts
func (r *Registry) UpdateStoreMetrics(assets, groups, relations int) {
	r.StoreAssets.Set(float64(assets))
	r.StoreGroups.Set(float64(groups))
	r.StoreRelations.Set(float64(relations))
}

// UpdateSystemMetrics refreshes uptime and goroutine count
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
}

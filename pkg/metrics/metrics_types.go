package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the engine
type Registry struct {
	// Router Metrics
	RouterPassesTotal     prometheus.Counter
	RouterPassDuration    prometheus.Histogram
	RouterRenderedEdges   prometheus.Gauge
	RouterUnresolvedTotal prometheus.Counter
	RouterSuppressedTotal prometheus.Counter

	// Reconciliation Metrics
	ReconcileRequestsTotal   *prometheus.CounterVec
	ReconcileRequestDuration *prometheus.HistogramVec
	ReconcileRollbacksTotal  *prometheus.CounterVec
	ReconcilePending         prometheus.Gauge
	ReconcileQueuedTotal     *prometheus.CounterVec

	// Interaction Metrics
	InteractionInvalidTransitionsTotal *prometheus.CounterVec

	// Store Metrics
	StoreConflictsTotal *prometheus.CounterVec
	StoreAssets         prometheus.Gauge
	StoreGroups         prometheus.Gauge
	StoreRelations      prometheus.Gauge

	// System Metrics
	UptimeSeconds prometheus.Gauge
	GoRoutines    prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initRouterMetrics()
	r.initReconcileMetrics()
	r.initInteractionMetrics()
	r.initStoreMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRouterMetrics() {
	r.RouterPassesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "canvas_router_passes_total",
			Help: "Total number of connection router passes",
		},
	)

	r.RouterPassDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canvas_router_pass_duration_seconds",
			Help:    "Duration of a router pass in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.RouterRenderedEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_router_rendered_edges",
			Help: "Number of edges rendered by the last router pass",
		},
	)

	r.RouterUnresolvedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "canvas_router_unresolved_endpoints_total",
			Help: "Relations skipped because an endpoint did not resolve",
		},
	)

	r.RouterSuppressedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "canvas_router_suppressed_passes_total",
			Help: "Router passes skipped while a grouping operation was in flight",
		},
	)
}

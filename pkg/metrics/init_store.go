package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreConflictsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_store_conflicts_total",
			Help: "Membership consistency conflicts by origin of the rejected or adopted value",
		},
		[]string{"origin"}, // local, server
	)

	r.StoreAssets = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_store_assets",
			Help: "Assets in the entity store",
		},
	)

	r.StoreGroups = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_store_groups",
			Help: "Groups in the entity store",
		},
	)

	r.StoreRelations = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_store_relations",
			Help: "Relations in the entity store",
		},
	)
}

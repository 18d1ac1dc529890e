package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInteractionMetrics() {
	r.InteractionInvalidTransitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_interaction_invalid_transitions_total",
			Help: "Input events ignored because the current mode does not accept them",
		},
		[]string{"event"},
	)
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.RouterPassesTotal == nil {
		t.Error("RouterPassesTotal not initialized")
	}
	if r.ReconcileRequestsTotal == nil {
		t.Error("ReconcileRequestsTotal not initialized")
	}
	if r.InteractionInvalidTransitionsTotal == nil {
		t.Error("InteractionInvalidTransitionsTotal not initialized")
	}
	if r.StoreConflictsTotal == nil {
		t.Error("StoreConflictsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestObserveRouterPass(t *testing.T) {
	r := NewRegistry()

	r.ObserveRouterPass(2*time.Millisecond, 12, 1)
	r.ObserveRouterPass(3*time.Millisecond, 10, 2)

	if got := counterValue(t, r.RouterPassesTotal); got != 2 {
		t.Errorf("passes = %v, want 2", got)
	}
	if got := gaugeValue(t, r.RouterRenderedEdges); got != 10 {
		t.Errorf("rendered edges = %v, want 10 (last pass)", got)
	}
	if got := counterValue(t, r.RouterUnresolvedTotal); got != 3 {
		t.Errorf("unresolved = %v, want 3", got)
	}
}

func TestObserveRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveRequest("relocateAsset", true, 10*time.Millisecond)
	r.ObserveRequest("relocateAsset", true, 20*time.Millisecond)
	r.ObserveRequest("relocateAsset", false, 5*time.Millisecond)
	r.ObserveRollback("relocateAsset")

	tests := []struct {
		name   string
		status string
		want   float64
	}{
		{"success", "success", 2},
		{"failure", "failure", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.ReconcileRequestsTotal.GetMetricWithLabelValues("relocateAsset", tt.status)
			if err != nil {
				t.Fatalf("Failed to get metric: %v", err)
			}
			if got := counterValue(t, c); got != tt.want {
				t.Errorf("%s requests = %v, want %v", tt.status, got, tt.want)
			}
		})
	}

	c, err := r.ReconcileRollbacksTotal.GetMetricWithLabelValues("relocateAsset")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, c); got != 1 {
		t.Errorf("rollbacks = %v, want 1", got)
	}
}

func TestPendingAndQueued(t *testing.T) {
	r := NewRegistry()

	r.ObservePending(3)
	r.ObservePending(1)
	r.ObserveQueued("renameAsset")

	if got := gaugeValue(t, r.ReconcilePending); got != 1 {
		t.Errorf("pending = %v, want 1", got)
	}
	c, _ := r.ReconcileQueuedTotal.GetMetricWithLabelValues("renameAsset")
	if got := counterValue(t, c); got != 1 {
		t.Errorf("queued = %v, want 1", got)
	}
}

func TestInvalidTransitionsAndConflicts(t *testing.T) {
	r := NewRegistry()

	r.ObserveInvalidTransition("click")
	r.ObserveInvalidTransition("click")
	r.RecordConflict("server")

	c, _ := r.InteractionInvalidTransitionsTotal.GetMetricWithLabelValues("click")
	if got := counterValue(t, c); got != 2 {
		t.Errorf("invalid transitions = %v, want 2", got)
	}
	c, _ = r.StoreConflictsTotal.GetMetricWithLabelValues("server")
	if got := counterValue(t, c); got != 1 {
		t.Errorf("conflicts = %v, want 1", got)
	}
}

func TestGaugeMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateStoreMetrics(40, 5, 61)
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"StoreAssets", r.StoreAssets, 40},
		{"StoreGroups", r.StoreGroups, 5},
		{"StoreRelations", r.StoreRelations, 61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.gauge); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}

	if got := gaugeValue(t, r.UptimeSeconds); got < 59 {
		t.Errorf("uptime = %v, want at least 59", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want at least 1", got)
	}
}

func TestGather(t *testing.T) {
	r := NewRegistry()
	r.ObserveRouterPass(time.Millisecond, 1, 0)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "canvas_") {
			t.Errorf("metric %s lacks the canvas_ prefix", mf.GetName())
		}
	}
	if len(families) == 0 {
		t.Error("Gather() returned no metric families")
	}
}

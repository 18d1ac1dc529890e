package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dd0wney/cluso-canvas/pkg/engine"
)

// inline runs posted work immediately
func inline(fn func()) error {
	fn()
	return nil
}

// stalled accepts work and never runs it
func stalled(fn func()) error { return nil }

func closed(fn func()) error { return errors.New("loop closed") }

func TestRegisterCheck(t *testing.T) {
	c := NewChecker()

	called := false
	c.RegisterCheck("test", func(ctx context.Context) Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	resp := c.Check(context.Background())
	if !called {
		t.Error("registered check was not called")
	}
	check, exists := resp.Checks["test"]
	if !exists {
		t.Fatal("check result not in response")
	}
	if check.Name != "test" {
		t.Errorf("expected name defaulted to test, got %q", check.Name)
	}
}

func TestReadinessChecksSeparate(t *testing.T) {
	c := NewChecker()

	called := false
	c.RegisterReadinessCheck("ready", func(ctx context.Context) Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	c.Check(context.Background())
	if called {
		t.Error("readiness check should not run for Check")
	}
	c.CheckReadiness(context.Background())
	if !called {
		t.Error("readiness check was not called")
	}
}

func TestWorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, s := range tt.statuses {
				c.RegisterCheck(string(rune('a'+i)), func(ctx context.Context) Check {
					return Check{Status: s}
				})
			}
			if got := c.Check(context.Background()).Status; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLoopCheck(t *testing.T) {
	tests := []struct {
		name   string
		post   Poster
		queued int
		want   Status
	}{
		{"responsive", inline, 0, StatusHealthy},
		{"backlogged", inline, 500, StatusDegraded},
		{"stalled", stalled, 0, StatusUnhealthy},
		{"closed", closed, 0, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := LoopCheck(tt.post, func() int { return tt.queued }, 100, 20*time.Millisecond)(context.Background())
			if check.Status != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, check.Status, check.Message)
			}
			if check.Details["queued_events"] != tt.queued {
				t.Errorf("expected queued_events %d, got %v", tt.queued, check.Details["queued_events"])
			}
		})
	}
}

func TestLoopCheckAgainstRunningLoop(t *testing.T) {
	loop := engine.NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	check := LoopCheck(loop.Post, loop.Len, 100, time.Second)(ctx)
	if check.Status != StatusHealthy {
		t.Fatalf("expected healthy loop, got %s: %s", check.Status, check.Message)
	}

	loop.Close()
	check = LoopCheck(loop.Post, loop.Len, 100, time.Second)(ctx)
	if check.Status != StatusUnhealthy {
		t.Errorf("expected closed loop unhealthy, got %s", check.Status)
	}
}

func TestReconcileCheck(t *testing.T) {
	state := ReconcileState{Pending: 3, Queued: 1, Stale: true}
	check := ReconcileCheck(inline, func() ReconcileState { return state }, 10, time.Second)(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", check.Status)
	}
	if check.Details["routing_suppressed"] != true {
		t.Error("expected routing_suppressed detail")
	}

	state.Queued = 20
	check = ReconcileCheck(inline, func() ReconcileState { return state }, 10, time.Second)(context.Background())
	if check.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", check.Status)
	}

	check = ReconcileCheck(stalled, func() ReconcileState { return state }, 10, 10*time.Millisecond)(context.Background())
	if check.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy on stalled loop, got %s", check.Status)
	}
}

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		status Status
		code   int
	}{
		{StatusHealthy, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := NewChecker()
			c.RegisterCheck("x", func(ctx context.Context) Check { return Check{Status: tt.status} })

			rec := httptest.NewRecorder()
			c.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, resp.Status)
			}
		})
	}
}

func TestReadinessHandlerIsBinary(t *testing.T) {
	c := NewChecker()
	c.RegisterReadinessCheck("x", func(ctx context.Context) Check { return Check{Status: StatusDegraded} })

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected degraded to be not ready, got %d", rec.Code)
	}
}

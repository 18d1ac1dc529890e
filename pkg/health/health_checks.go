package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Poster runs fn on the engine's event loop
type Poster func(fn func()) error

// ErrTimeout is returned when the loop does not run a probe in time
var ErrTimeout = errors.New("event loop did not answer in time")

// onLoop runs probe on the event loop and waits for it
func onLoop(ctx context.Context, post Poster, timeout time.Duration, probe func()) error {
	done := make(chan struct{})
	if err := post(func() {
		probe()
		close(done)
	}); err != nil {
		return err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoopCheck is unhealthy when the event loop does not run a probe within
// timeout and degraded when more than backlog events are waiting
func LoopCheck(post Poster, queued func() int, backlog int, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "event_loop",
			Details: make(map[string]any),
		}
		n := queued()
		check.Details["queued_events"] = n

		start := time.Now()
		if err := onLoop(ctx, post, timeout, func() {}); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Details["latency_ms"] = time.Since(start).Milliseconds()

		if n > backlog {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d events waiting", n)
		} else {
			check.Status = StatusHealthy
			check.Message = "Responsive"
		}
		return check
	}
}

// ReconcileState is what ReconcileCheck reads from the engine
type ReconcileState struct {
	Pending int
	Queued  int
	Stale   bool
}

// ReconcileCheck reads state on the event loop. It is degraded when more
// than limit operations are in flight or queued.
func ReconcileCheck(post Poster, state func() ReconcileState, limit int, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "reconciliation",
			Details: make(map[string]any),
		}
		var st ReconcileState
		if err := onLoop(ctx, post, timeout, func() { st = state() }); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Details["pending"] = st.Pending
		check.Details["queued"] = st.Queued
		check.Details["routing_suppressed"] = st.Stale

		if st.Pending+st.Queued > limit {
			check.Status = StatusDegraded
			check.Message = "Model service is falling behind"
		} else {
			check.Status = StatusHealthy
			check.Message = "Reconciliation healthy"
		}
		return check
	}
}

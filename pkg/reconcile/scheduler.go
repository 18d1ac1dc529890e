package reconcile

import (
	"context"
	"sync"
)

// Request is one Model Service call. It runs off the event loop.
type Request func(ctx context.Context) (any, error)

// Scheduler runs requests and delivers completions. done must be invoked on
// the caller's event loop, in completion order.
type Scheduler interface {
	Schedule(req Request, done func(result any, err error))
}

// InlineScheduler runs each request synchronously inside Schedule. Command
// line tools use it where there is no event loop to return to.
type InlineScheduler struct {
	Ctx context.Context
}

// Schedule runs req and calls done before returning
func (s InlineScheduler) Schedule(req Request, done func(any, error)) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := req(ctx)
	done(res, err)
}

type scheduled struct {
	req  Request
	done func(any, error)
}

// ManualScheduler holds requests until the test resolves them, in any
// order, so arrival order can differ from issue order.
type ManualScheduler struct {
	mu    sync.Mutex
	calls []*scheduled
}

// Schedule records the request
func (s *ManualScheduler) Schedule(req Request, done func(any, error)) {
	s.mu.Lock()
	s.calls = append(s.calls, &scheduled{req: req, done: done})
	s.mu.Unlock()
}

// Len returns the number of unresolved requests
func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *ManualScheduler) take(i int) *scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.calls) {
		return nil
	}
	c := s.calls[i]
	s.calls = append(s.calls[:i], s.calls[i+1:]...)
	return c
}

// Complete runs the i-th outstanding request and delivers its result.
// It reports false when there is no such request.
func (s *ManualScheduler) Complete(i int) bool {
	c := s.take(i)
	if c == nil {
		return false
	}
	res, err := c.req(context.Background())
	c.done(res, err)
	return true
}

// Fail delivers err for the i-th outstanding request without running it
func (s *ManualScheduler) Fail(i int, err error) bool {
	c := s.take(i)
	if c == nil {
		return false
	}
	c.done(nil, err)
	return true
}

// CompleteAll resolves outstanding requests in issue order, including any
// queued while resolving
func (s *ManualScheduler) CompleteAll() int {
	n := 0
	for s.Complete(0) {
		n++
	}
	return n
}

package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
)

// ErrLoopClosed is returned by Post after Close
var ErrLoopClosed = errors.New("event loop closed")

// Loop is the engine's single-threaded run-to-completion event queue. All
// engine state is touched only by events running on it, either through Run
// on a dedicated goroutine or through Drain on the host's own goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	logger logging.Logger
}

// NewLoop creates an empty loop
func NewLoop(logger logging.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logging.OrNop(logger).With(logging.Component("loop")),
	}
}

// Post enqueues fn. It never blocks and is safe from any goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued events
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

// Drain runs queued events, including any they post, until the queue is
// empty, and returns how many ran
func (l *Loop) Drain() int {
	n := 0
	for {
		batch := l.take()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run executes events as they arrive until ctx is done or the loop is
// closed
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("event loop started")
	defer l.logger.Debug("event loop stopped")
	for {
		l.Drain()
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close stops accepting events and wakes Run so it can return
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// LoopScheduler runs Model Service requests on their own goroutines and
// posts each completion back onto the loop, so completions are processed
// in arrival order on the loop goroutine.
type LoopScheduler struct {
	ctx    context.Context
	loop   *Loop
	wg     sync.WaitGroup
	logger logging.Logger
}

// NewLoopScheduler creates a scheduler whose requests run under ctx
func NewLoopScheduler(ctx context.Context, loop *Loop, logger logging.Logger) *LoopScheduler {
	return &LoopScheduler{
		ctx:    ctx,
		loop:   loop,
		logger: logging.OrNop(logger).With(logging.Component("scheduler")),
	}
}

// Schedule starts req and posts done when it returns
func (s *LoopScheduler) Schedule(req reconcile.Request, done func(any, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := req(s.ctx)
		if postErr := s.loop.Post(func() { done(res, err) }); postErr != nil {
			s.logger.Warn("completion dropped", logging.Error(postErr))
		}
	}()
}

// Wait blocks until every started request has posted its completion
func (s *LoopScheduler) Wait() {
	s.wg.Wait()
}

var _ reconcile.Scheduler = (*LoopScheduler)(nil)

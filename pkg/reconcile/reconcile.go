// Package reconcile mediates every external-state mutation: apply the
// optimistic update, record it as pending, issue the Model Service request,
// then adopt the server's canonical value or roll back.
package reconcile

import (
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Operation is one mutating user action
type Operation struct {
	// Name is the Model Service operation, e.g. "relocateAsset"
	Name string
	Kind model.OperationKind
	// Entity is the primary entity, used for messages and the pending view
	Entity store.Ref
	// Keys serialize the operation: it waits while any key has an
	// outstanding record. Defaults to Entity.
	Keys []store.Ref
	// Touches are captured before Apply and restored on failure.
	// Defaults to Keys.
	Touches []store.Ref
	// TouchesFn, when set, replaces Touches and runs when the operation
	// starts, so a queued operation captures what exists by then
	TouchesFn func() []store.Ref
	// Apply performs the optimistic store update and returns the
	// optimistic value for the pending record
	Apply func() (any, error)
	// Request is the Model Service call
	Request Request
	// Commit writes the canonical server value
	Commit func(result any) error
	// Settled runs after commit or rollback
	Settled func(ok bool)
}

// Level grades a notification
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a user-visible message
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Op      string `json:"op,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Err     error  `json:"-"`
}

// Observer receives reconciliation statistics
type Observer interface {
	ObserveRequest(op string, ok bool, d time.Duration)
	ObserveRollback(op string)
	ObservePending(n int)
	ObserveQueued(op string)
}

// Key renders a ref as a pending-record key
func Key(r store.Ref) string {
	return r.Kind.String() + ":" + r.ID
}

type waiter struct {
	op   *Operation
	keys []string
}

type record struct {
	op      *Operation
	keys    []string
	capture *store.Capture
	pending model.PendingOperation
	issued  time.Time
}

// Layer is the Reconciliation Layer. Like the store, it runs on the event
// loop only.
type Layer struct {
	store    *store.Store
	sched    Scheduler
	records  map[string]*record
	waiting  []waiter
	notify   func(Notification)
	observer Observer
	logger   logging.Logger
	now      func() time.Time
	seq      uint64
}

// Options configures a Layer
type Options struct {
	Logger   logging.Logger
	Notify   func(Notification)
	Observer Observer
	Now      func() time.Time
}

// New creates a layer writing to st and issuing requests through sched
func New(st *store.Store, sched Scheduler, opts Options) *Layer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Layer{
		store:    st,
		sched:    sched,
		records:  make(map[string]*record),
		notify:   opts.Notify,
		observer: opts.Observer,
		logger:   logging.OrNop(opts.Logger).With(logging.Component("reconcile")),
		now:      now,
	}
}

func keysOf(op *Operation) []string {
	refs := op.Keys
	if len(refs) == 0 {
		refs = []store.Ref{op.Entity}
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, Key(r))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (l *Layer) busy(keys []string) bool {
	for _, k := range keys {
		if _, ok := l.records[k]; ok {
			return true
		}
	}
	return false
}

// Submit applies op optimistically and issues its request, or queues it
// behind an outstanding operation on the same entity. Queued operations
// apply their optimistic update only when they leave the queue. A local
// Apply error is returned, the store is left unchanged and no request is
// issued.
func (l *Layer) Submit(op *Operation) (queued bool, err error) {
	keys := keysOf(op)
	if l.busy(keys) || l.blockedByWaiting(keys) {
		l.waiting = append(l.waiting, waiter{op: op, keys: keys})
		l.logger.Debug("operation queued", logging.Operation(op.Name), logging.EntityID(op.Entity.ID))
		if l.observer != nil {
			l.observer.ObserveQueued(op.Name)
		}
		return true, nil
	}
	return false, l.start(op, keys)
}

// blockedByWaiting reports whether a waiting operation shares a key, which
// keeps per-entity order
func (l *Layer) blockedByWaiting(keys []string) bool {
	for _, w := range l.waiting {
		for _, k := range w.keys {
			if slices.Contains(keys, k) {
				return true
			}
		}
	}
	return false
}

func (l *Layer) start(op *Operation, keys []string) error {
	touches := op.Touches
	if op.TouchesFn != nil {
		touches = op.TouchesFn()
	}
	if len(touches) == 0 {
		touches = op.Keys
	}
	if len(touches) == 0 {
		touches = []store.Ref{op.Entity}
	}
	capture := l.store.Capture(touches...)

	var optimistic any
	if op.Apply != nil {
		v, err := op.Apply()
		if err != nil {
			l.store.Restore(capture)
			l.logger.Warn("optimistic update rejected", logging.Operation(op.Name), logging.Error(err))
			return err
		}
		optimistic = v
	}

	l.seq++
	rec := &record{
		op:      op,
		keys:    keys,
		capture: capture,
		issued:  l.now(),
		pending: model.PendingOperation{
			EntityID:      op.Entity.ID,
			Kind:          op.Kind,
			Optimistic:    optimistic,
			Awaiting:      true,
			CorrelationID: fmt.Sprintf("%s-%d", op.Name, l.seq),
			IssuedAt:      l.now(),
		},
	}
	for _, k := range keys {
		l.records[k] = rec
	}
	l.observePending()
	l.logger.Debug("request issued", logging.Operation(op.Name), logging.EntityID(op.Entity.ID),
		logging.String("correlation_id", rec.pending.CorrelationID))

	l.sched.Schedule(op.Request, func(res any, err error) {
		l.resolve(rec, res, err)
	})
	return nil
}

func (l *Layer) resolve(rec *record, res any, reqErr error) {
	op := rec.op
	elapsed := l.now().Sub(rec.issued)
	ok := reqErr == nil

	if ok && op.Commit != nil {
		if err := op.Commit(res); err != nil {
			// A canonical value the store refuses is treated like a failed request.
			ok = false
			reqErr = err
		}
	}
	if !ok {
		l.store.Restore(rec.capture)
		failure := model.RequestFailureError(op.Name, op.Entity.Kind, op.Entity.ID, reqErr)
		l.logger.Warn("request failed, rolled back", logging.Operation(op.Name),
			logging.EntityID(op.Entity.ID), logging.Latency(elapsed), logging.Error(reqErr))
		if l.observer != nil {
			l.observer.ObserveRollback(op.Name)
		}
		l.emit(Notification{
			Level:   LevelError,
			Message: model.UserMessage(failure),
			Op:      op.Name,
			Entity:  op.Entity.ID,
			Err:     failure,
		})
	}

	for _, k := range rec.keys {
		if l.records[k] == rec {
			delete(l.records, k)
		}
	}
	if op.Settled != nil {
		op.Settled(ok)
	}
	if l.observer != nil {
		l.observer.ObserveRequest(op.Name, ok, elapsed)
	}
	l.observePending()
	l.drain()
}

// drain starts waiting operations whose keys are free, oldest first. Keys
// of operations left waiting are claimed so later waiters stay behind them.
func (l *Layer) drain() {
	claimed := make(map[string]bool)
	for i := 0; i < len(l.waiting); {
		w := l.waiting[i]
		if l.busy(w.keys) || anyClaimed(claimed, w.keys) {
			for _, k := range w.keys {
				claimed[k] = true
			}
			i++
			continue
		}
		op := w.op
		l.waiting = slices.Delete(l.waiting, i, i+1)
		if err := l.start(op, w.keys); err != nil {
			l.emit(Notification{
				Level:   LevelWarning,
				Message: model.UserMessage(err),
				Op:      op.Name,
				Entity:  op.Entity.ID,
				Err:     err,
			})
		}
		// start may have resolved inline and drained already; rescan.
		i = 0
		clear(claimed)
	}
}

func anyClaimed(claimed map[string]bool, keys []string) bool {
	for _, k := range keys {
		if claimed[k] {
			return true
		}
	}
	return false
}

func (l *Layer) emit(n Notification) {
	if l.notify != nil {
		l.notify(n)
	}
}

func (l *Layer) observePending() {
	if l.observer != nil {
		l.observer.ObservePending(l.PendingCount())
	}
}

// Pending returns the outstanding record for an entity
func (l *Layer) Pending(ref store.Ref) (model.PendingOperation, bool) {
	rec, ok := l.records[Key(ref)]
	if !ok {
		return model.PendingOperation{}, false
	}
	return rec.pending, true
}

// IsPending reports whether the entity has an outstanding record
func (l *Layer) IsPending(ref store.Ref) bool {
	_, ok := l.records[Key(ref)]
	return ok
}

// PendingCount returns the number of outstanding operations
func (l *Layer) PendingCount() int {
	seen := make(map[*record]bool, len(l.records))
	for _, r := range l.records {
		seen[r] = true
	}
	return len(seen)
}

// PendingKeys returns the keys with outstanding records, sorted
func (l *Layer) PendingKeys() []string {
	out := make([]string, 0, len(l.records))
	for k := range l.records {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// QueuedCount returns the number of operations waiting behind another
func (l *Layer) QueuedCount() int {
	return len(l.waiting)
}

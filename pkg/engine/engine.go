// Package engine composes the diagram state engine: entity store,
// containment, router, interaction machine, reconciliation and viewport,
// driven by one event loop and observed through frames and notifications.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-canvas/pkg/constraints"
	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/metrics"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/pubsub"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/render"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/store"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

// maxNotifications bounds the recent-notification list
const maxNotifications = 32

// Options configures an Engine
type Options struct {
	Service   modelservice.Service
	Catalogue *schema.Catalogue
	// Scheduler runs Model Service requests; defaults to a LoopScheduler
	// on Loop
	Scheduler reconcile.Scheduler
	Loop      *Loop
	Viewport  viewport.Config
	Shapes    containment.Shapes
	LabelBase float64
	Filters   router.Filters
	Bus       *pubsub.PubSub
	Metrics   *metrics.Registry
	Logger    logging.Logger
}

// Engine is the diagram state engine. Its methods must be called from the
// event loop goroutine.
type Engine struct {
	service   modelservice.Service
	catalogue *schema.Catalogue
	store     *store.Store
	view      *viewport.Viewport
	groups    *containment.Manager
	dedup     *containment.Deduplicator
	router    *router.Router
	machine   *interaction.Machine
	reconcile *reconcile.Layer
	loop      *Loop
	bus       *pubsub.PubSub
	metrics   *metrics.Registry
	logger    logging.Logger

	filters       router.Filters
	edges         []router.Edge
	stale         bool
	seq           uint64
	notifications []reconcile.Notification
	started       time.Time
}

// New wires an engine. Service is required.
func New(opts Options) (*Engine, error) {
	if opts.Service == nil {
		return nil, errors.New("engine: a model service is required")
	}
	logger := logging.OrNop(opts.Logger)
	if opts.Catalogue == nil {
		opts.Catalogue = schema.DefaultCatalogue()
	}
	if opts.Viewport == (viewport.Config{}) {
		opts.Viewport = viewport.DefaultConfig()
	}
	if opts.Shapes == (containment.Shapes{}) {
		opts.Shapes = containment.DefaultShapes()
	}
	if opts.LabelBase == 0 {
		opts.LabelBase = router.DefaultLabelBase
	}
	if opts.Loop == nil {
		opts.Loop = NewLoop(logger)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewLoopScheduler(context.Background(), opts.Loop, logger)
	}
	if opts.Bus == nil {
		opts.Bus = pubsub.NewPubSub(logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}

	e := &Engine{
		service:   opts.Service,
		catalogue: opts.Catalogue,
		loop:      opts.Loop,
		bus:       opts.Bus,
		metrics:   opts.Metrics,
		logger:    logger.With(logging.Component("engine")),
		filters:   opts.Filters,
		started:   time.Now(),
	}
	e.store = store.New(store.Options{Logger: logger, OnConflict: e.onConflict})
	e.view = viewport.New(opts.Viewport, logger)
	e.groups = containment.NewManager(e.store, opts.Shapes, logger)
	e.dedup = containment.NewDeduplicator(logger)
	e.router = router.New(
		router.WithLabelBase(opts.LabelBase),
		router.WithObserver(e.metrics),
		router.WithLogger(logger),
	)
	e.machine = interaction.NewMachine(e.store, e.catalogue, e.metrics, logger)
	e.reconcile = reconcile.New(e.store, opts.Scheduler, reconcile.Options{
		Logger:   logger,
		Notify:   e.notify,
		Observer: e.metrics,
	})
	return e, nil
}

func (e *Engine) onConflict(err error, origin store.Origin) {
	e.metrics.RecordConflict(origin.String())
}

func (e *Engine) notify(n reconcile.Notification) {
	e.notifications = append(e.notifications, n)
	if len(e.notifications) > maxNotifications {
		e.notifications = e.notifications[len(e.notifications)-maxNotifications:]
	}
	e.bus.Publish(pubsub.TopicNotifications, n)
}

func (e *Engine) warn(message string) {
	e.notify(reconcile.Notification{Level: reconcile.LevelWarning, Message: message})
}

// Loop returns the engine's event loop
func (e *Engine) Loop() *Loop { return e.loop }

// Bus returns the frame and notification bus
func (e *Engine) Bus() *pubsub.PubSub { return e.bus }

// Metrics returns the engine's metrics registry
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Store returns a read-only view of the entity store
func (e *Engine) Store() store.Reader { return e.store }

// Catalogue returns the relation-type catalogue
func (e *Engine) Catalogue() *schema.Catalogue { return e.catalogue }

// Notifications returns the most recent user notifications, oldest first
func (e *Engine) Notifications() []reconcile.Notification {
	out := make([]reconcile.Notification, len(e.notifications))
	copy(out, e.notifications)
	return out
}

// ErrBusy is returned by LoadFromService while operations are pending
var ErrBusy = errors.New("engine: operations pending")

// LoadFromService replaces local state with the service's canonical model
// and runs a router pass
func (e *Engine) LoadFromService(ctx context.Context) error {
	if e.reconcile.PendingCount() > 0 || e.reconcile.QueuedCount() > 0 {
		return ErrBusy
	}
	timer := logging.StartTimer(e.logger, "service load")
	d, err := e.service.Load(ctx)
	if err != nil {
		timer.EndError(err)
		return fmt.Errorf("failed to load diagram: %w", err)
	}
	timer.End()
	e.clear()
	for _, a := range d.Assets {
		// membership is taken from the group lists
		a.GroupID = ""
		if err := e.store.UpsertAsset(a, store.OriginServer); err != nil {
			return err
		}
	}
	for _, g := range d.Groups {
		if err := e.store.UpsertGroup(g, store.OriginServer); err != nil {
			return err
		}
	}
	for _, r := range d.Relations {
		if err := e.store.UpsertRelation(r, store.OriginServer); err != nil {
			return err
		}
	}
	assets, groups, relations := e.store.Counts()
	e.logger.Info("diagram loaded", logging.Count(assets),
		logging.Int("groups", groups), logging.Int("relations", relations))
	e.refresh()
	return nil
}

func (e *Engine) clear() {
	for _, r := range e.store.Relations() {
		_ = e.store.RemoveRelation(r.ID)
	}
	for _, g := range e.store.Groups() {
		_, _ = e.store.RemoveGroup(g.ID, false)
	}
	for _, a := range e.store.Assets() {
		_, _ = e.store.RemoveAsset(a.ID)
		e.machine.Forget(a.ID)
		e.groups.Forget(a.ID)
	}
}

// applyChange writes a canonical server change into the store
func (e *Engine) applyChange(ch *modelservice.Change) error {
	if ch == nil {
		return nil
	}
	var errs []error
	for _, a := range ch.Assets {
		errs = append(errs, e.store.UpsertAsset(a, store.OriginServer))
	}
	for _, g := range ch.Groups {
		errs = append(errs, e.store.UpsertGroup(g, store.OriginServer))
	}
	for _, r := range ch.Relations {
		errs = append(errs, e.store.UpsertRelation(r, store.OriginServer))
	}
	for _, id := range ch.Removed.Relations {
		e.store.ConfirmRemoved(store.RelationRef(id))
		errs = append(errs, ignoreNotFound(e.store.RemoveRelation(id)))
	}
	for _, id := range ch.Removed.Assets {
		e.store.ConfirmRemoved(store.AssetRef(id))
		_, err := e.store.RemoveAsset(id)
		errs = append(errs, ignoreNotFound(err))
		e.machine.Forget(id)
		e.groups.Forget(id)
	}
	for _, id := range ch.Removed.Groups {
		e.store.ConfirmRemoved(store.GroupRef(id))
		_, err := e.store.RemoveGroup(id, false)
		errs = append(errs, ignoreNotFound(err))
	}
	return errors.Join(errs...)
}

func ignoreNotFound(err error) error {
	if model.IsNotFound(err) {
		return nil
	}
	return err
}

// refresh runs a router pass after a structural change, unless a grouping
// operation is in flight, and publishes a frame
func (e *Engine) refresh() {
	if e.groups.AnyGroupingInProgress() {
		e.stale = true
		e.metrics.RecordSuppressedPass()
		e.logger.Debug("router pass suppressed", logging.Count(len(e.groups.GroupsInProgress())))
	} else {
		e.route()
	}
	e.publish()
}

func (e *Engine) route() {
	err := e.groups.WithMembersResolved(e.store, func(l *containment.Layout) error {
		res := e.router.Route(router.Input{Layout: l, Relations: e.store.Relations(), Filters: e.filters})
		e.edges = res.Edges
		return nil
	})
	if err != nil {
		e.logger.Error("router pass failed", logging.Error(err))
		return
	}
	e.stale = false
	e.metrics.UpdateStoreMetrics(e.store.Counts())
}

// publish sends the current frame unless redraw is suppressed
func (e *Engine) publish() {
	if e.view.SuppressRedraw() {
		return
	}
	e.bus.Publish(pubsub.TopicFrame, e.Frame())
}

// Frame projects the current state
func (e *Engine) Frame() render.Frame {
	e.seq++
	var f render.Frame
	err := e.groups.WithMembersResolved(e.store, func(l *containment.Layout) error {
		f = render.Project(render.Input{
			Seq:          e.seq,
			Entities:     e.store,
			Layout:       l,
			Interaction:  e.machine.State(),
			Previews:     e.machine.Preview(e.groups.Shapes().Asset),
			Pending:      e.reconcile.IsPending,
			PendingCount: e.reconcile.PendingCount(),
			Grouping:     e.groups.GroupingInProgress,
			Edges:        e.edges,
			Stale:        e.stale,
			Transform:    e.view.Transform(),
			AssetSize:    e.groups.Shapes().Asset,
		})
		return nil
	})
	if err != nil {
		e.logger.Error("projection failed", logging.Error(err))
	}
	return f
}

// RenderedEdges returns the edge set of the last router pass
func (e *Engine) RenderedEdges() []router.Edge {
	out := make([]router.Edge, len(e.edges))
	copy(out, e.edges)
	return out
}

// ConnectionState returns the connection-drawing state
func (e *Engine) ConnectionState() interaction.Connection { return e.machine.Connection() }

// InteractionState returns all transient interaction flags
func (e *Engine) InteractionState() interaction.State { return e.machine.State() }

// Transform returns the viewport transform
func (e *Engine) Transform() viewport.Transform { return e.view.Transform() }

// ToScreen converts a model point to screen pixels
func (e *Engine) ToScreen(p geom.Point) geom.Point { return e.view.ToScreen(p) }

// ToModel converts screen pixels to a model point
func (e *Engine) ToModel(p geom.Point) geom.Point { return e.view.ToModel(p) }

// Pending returns the outstanding record for an entity
func (e *Engine) Pending(ref store.Ref) (model.PendingOperation, bool) {
	return e.reconcile.Pending(ref)
}

// GroupingInProgress reports whether a group has a membership change in flight
func (e *Engine) GroupingInProgress(groupID string) bool {
	return e.groups.GroupingInProgress(groupID)
}

// IsAssetInAnyGroup reports whether the asset belongs to a group
func (e *Engine) IsAssetInAnyGroup(assetID string) bool {
	return e.store.IsAssetInAnyGroup(assetID)
}

// ValidOutgoingTypes lists relation types an asset type may originate
func (e *Engine) ValidOutgoingTypes(assetType string) []schema.RelationType {
	return e.catalogue.ValidOutgoingTypes(assetType)
}

// ValidIncomingTypes lists relation types an asset type may receive
func (e *Engine) ValidIncomingTypes(assetType string) []schema.RelationType {
	return e.catalogue.ValidIncomingTypes(assetType)
}

// IsEdgeDeletable reports whether the rendered edge may be deleted
func (e *Engine) IsEdgeDeletable(edgeID string) bool {
	for _, edge := range e.edges {
		if edge.ID == edgeID {
			return router.Deletable(edge)
		}
	}
	return false
}

// Filters returns the active view filters
func (e *Engine) Filters() router.Filters { return e.filters }

// SetFilters changes the view filters and reroutes
func (e *Engine) SetFilters(f router.Filters) {
	if f == e.filters {
		return
	}
	e.filters = f
	e.refresh()
}

// CheckInvariants validates membership, endpoints, enclosure and relation
// types against the current store
func (e *Engine) CheckInvariants() (*constraints.ValidationResult, error) {
	return constraints.Invariants(e.groups, e.catalogue).Validate(e.store)
}

// Status summarises reconciliation and store state
type Status struct {
	Pending   int  `json:"pending"`
	Queued    int  `json:"queued"`
	Stale     bool `json:"stale"`
	Assets    int  `json:"assets"`
	Groups    int  `json:"groups"`
	Relations int  `json:"relations"`
}

// Status reports the current Status
func (e *Engine) Status() Status {
	assets, groups, relations := e.store.Counts()
	return Status{
		Pending:   e.reconcile.PendingCount(),
		Queued:    e.reconcile.QueuedCount(),
		Stale:     e.stale,
		Assets:    assets,
		Groups:    groups,
		Relations: relations,
	}
}

// UpdateSystemMetrics refreshes uptime and goroutine gauges
func (e *Engine) UpdateSystemMetrics() {
	e.metrics.UpdateSystemMetrics(e.started)
}

// Close shuts down the notification bus and the loop
func (e *Engine) Close() {
	e.bus.Shutdown()
	e.loop.Close()
}

func tempID(prefix string) string {
	return "local-" + prefix + "-" + uuid.New().String()
}

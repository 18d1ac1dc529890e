package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/pubsub"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/render"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

const plantYAML = `
assets:
  - {id: host1, type: Host, name: Historian host, position: {x: 20, y: 20}}
  - {id: proc1, type: Process, name: Historian, position: {x: 20, y: 120}}
  - {id: proc2, type: Process, name: OPC bridge, position: {x: 600, y: 100}}
  - {id: plc1, type: PLC, name: Feeder PLC, position: {x: 600, y: 300}}
groups:
  - id: cell
    label: Control cell
    position: {x: 0, y: 0}
    size: {width: 300, height: 300}
    expanded: true
    resizable: true
    members: [host1, proc1]
  - id: dmz
    label: DMZ
    position: {x: 1000, y: 0}
    size: {width: 300, height: 300}
    expanded: true
relations:
  - {id: r1, from: proc1, to: host1, type: runs-on}
`

type harness struct {
	engine  *Engine
	service *modelservice.Memory
	sched   *reconcile.ManualScheduler
	metrics *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched := &reconcile.ManualScheduler{}
	e, svc := newEngine(t, sched)
	return &harness{engine: e, service: svc, sched: sched, metrics: e.Metrics().GetPrometheusRegistry()}
}

func newEngine(t *testing.T, sched reconcile.Scheduler) (*Engine, *modelservice.Memory) {
	t.Helper()
	d, err := modelservice.ParseSeed([]byte(plantYAML))
	require.NoError(t, err)

	n := 0
	svc := modelservice.NewMemory(schema.DefaultCatalogue(), modelservice.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	require.NoError(t, svc.Seed(d))

	e, err := New(Options{
		Service:   svc,
		Scheduler: sched,
		Logger:    logging.NewMemoryLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	require.NoError(t, e.LoadFromService(context.Background()))
	return e, svc
}

// eagerScheduler runs each request when it is issued and holds the
// response until the test delivers it
type eagerScheduler struct {
	held []func()
}

func (s *eagerScheduler) Schedule(req reconcile.Request, done func(any, error)) {
	res, err := req(context.Background())
	s.held = append(s.held, func() { done(res, err) })
}

// deliverNewest hands back the most recently issued response
func (s *eagerScheduler) deliverNewest() bool {
	n := len(s.held)
	if n == 0 {
		return false
	}
	d := s.held[n-1]
	s.held = s.held[:n-1]
	d()
	return true
}

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func (h *harness) position(t *testing.T, id string) geom.Point {
	t.Helper()
	a, ok := h.engine.Store().Asset(id)
	require.True(t, ok, "asset %s", id)
	return a.Position
}

func (h *harness) groupOf(id string) string {
	g, _ := h.engine.Store().GroupOf(id)
	return g
}

func (h *harness) serverGroupOf(t *testing.T, id string) string {
	t.Helper()
	d, err := h.service.Load(context.Background())
	require.NoError(t, err)
	for _, a := range d.Assets {
		if a.ID == id {
			return a.GroupID
		}
	}
	t.Fatalf("asset %s missing on server", id)
	return ""
}

func (h *harness) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := h.metrics.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += counterOf(m)
		}
	}
	return total
}

func counterOf(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}

func edgeIDs(edges []router.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.ID)
	}
	return out
}

func TestLoadRoutesAndValidates(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, []string{"r1"}, edgeIDs(h.engine.RenderedEdges()))
	assert.True(t, h.engine.IsAssetInAnyGroup("host1"))
	assert.False(t, h.engine.IsAssetInAnyGroup("plc1"))
	assert.True(t, h.engine.IsEdgeDeletable("r1"))

	res, err := h.engine.CheckInvariants()
	require.NoError(t, err)
	assert.True(t, res.Valid, "%v", res.Violations)
}

func TestDragIntoGroupOptimisticThenConfirmed(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartAssetDrag("proc2", pt(600, 100)))
	require.NoError(t, e.DragTo(pt(300, 100)))
	require.NoError(t, e.EndDrag(pt(100, 100)))

	assert.Equal(t, "cell", h.groupOf("proc2"), "membership applied optimistically")
	assert.Equal(t, pt(100, 100), h.position(t, "proc2"))
	assert.True(t, e.GroupingInProgress("cell"))
	assert.True(t, e.reconcile.IsPending(store.AssetRef("proc2")))
	assert.Equal(t, 1, h.sched.Len(), "one request per gesture")

	f := e.Frame()
	assert.True(t, f.Stale)
	g, ok := f.Group("cell")
	require.True(t, ok)
	assert.True(t, render.Has(g.Classes, render.ClassGrouping))
	assert.Equal(t, 1.0, h.counter(t, "canvas_router_suppressed_passes_total"))

	require.True(t, h.sched.Complete(0))

	assert.False(t, e.GroupingInProgress("cell"))
	assert.False(t, e.reconcile.IsPending(store.AssetRef("proc2")))
	assert.Equal(t, "cell", h.groupOf("proc2"))
	assert.Equal(t, "cell", h.serverGroupOf(t, "proc2"))
	assert.Equal(t, pt(100, 100), h.position(t, "proc2"))
	assert.False(t, e.Frame().Stale)
}

func TestDragBetweenGroupsIsOneMove(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartAssetDrag("proc1", pt(20, 120)))
	require.NoError(t, e.EndDrag(pt(1100, 120)))

	p, ok := e.Pending(store.AssetRef("proc1"))
	require.True(t, ok)
	assert.Equal(t, model.OpMoveBetweenGroups, p.Kind)
	assert.True(t, e.GroupingInProgress("cell"))
	assert.True(t, e.GroupingInProgress("dmz"))

	h.sched.CompleteAll()
	assert.Equal(t, "dmz", h.groupOf("proc1"))
	assert.Equal(t, "dmz", h.serverGroupOf(t, "proc1"))
}

func TestFailedDropRollsBackMembership(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartAssetDrag("proc2", pt(600, 100)))
	require.NoError(t, e.EndDrag(pt(100, 100)))
	require.True(t, h.sched.Fail(0, errors.New("unavailable")))

	assert.Equal(t, "", h.groupOf("proc2"))
	assert.Equal(t, pt(600, 100), h.position(t, "proc2"))
	assert.False(t, e.GroupingInProgress("cell"))
	assert.Zero(t, e.reconcile.PendingCount())

	notes := e.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, reconcile.LevelError, notes[len(notes)-1].Level)
}

func TestFailedRelocateReverts(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.RelocateAsset("plc1", pt(700, 0)))
	assert.Equal(t, pt(700, 0), h.position(t, "plc1"))

	require.True(t, h.sched.Fail(0, errors.New("timeout")))
	assert.Equal(t, pt(600, 300), h.position(t, "plc1"))
	assert.False(t, e.reconcile.IsPending(store.AssetRef("plc1")))
	assert.Equal(t, 1.0, h.counter(t, "canvas_reconcile_rollbacks_total"))

	notes := e.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, modelservice.OpRelocateAsset, notes[0].Op)
	assert.Equal(t, "plc1", notes[0].Entity)
}

func TestServerRejectionRollsBack(t *testing.T) {
	h := newHarness(t)
	h.service.FailNext(modelservice.OpRenameAsset, modelservice.ErrRejected)

	require.NoError(t, h.engine.RenameAsset("plc1", "Renamed"))
	a, _ := h.engine.Store().Asset("plc1")
	assert.Equal(t, "Renamed", a.Name)

	h.sched.CompleteAll()
	a, _ = h.engine.Store().Asset("plc1")
	assert.Equal(t, "Feeder PLC", a.Name)
}

func TestSameEntityOperationsQueue(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.RelocateAsset("plc1", pt(700, 300)))
	require.NoError(t, e.RelocateAsset("plc1", pt(800, 300)))
	assert.Equal(t, 1, h.sched.Len())
	assert.Equal(t, 1, e.reconcile.QueuedCount())
	assert.Equal(t, pt(700, 300), h.position(t, "plc1"))
	st := e.Status()
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Queued)

	assert.Equal(t, 2, h.sched.CompleteAll())
	assert.Equal(t, pt(800, 300), h.position(t, "plc1"))
	assert.Equal(t, Status{Assets: 4, Groups: 2, Relations: 1}, e.Status())
}

func TestConnectionCommitsRunsOn(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartConnection("proc2", pt(600, 100)))
	conn := e.ConnectionState()
	assert.Equal(t, interaction.PhaseDrawing, conn.Phase)
	assert.True(t, conn.IsCandidate("host1"))
	assert.False(t, conn.IsCandidate("proc1"), "no type connects two processes")

	out, err := e.CompleteConnection("host1")
	require.NoError(t, err)
	assert.Equal(t, interaction.OutcomeCommit, out.Kind)
	assert.Equal(t, "runs-on", out.Relation.Type.Name)
	assert.False(t, e.ConnectionState().Active())

	h.sched.CompleteAll()
	rel, ok := e.Store().Relation("id-1")
	require.True(t, ok)
	assert.Equal(t, "proc2", rel.From)
	assert.Equal(t, "host1", rel.To)
	assert.Contains(t, edgeIDs(e.RenderedEdges()), "id-1")
	for _, r := range e.Store().Relations() {
		assert.NotContains(t, r.ID, "local-", "placeholder replaced by the server relation")
	}
}

func TestConnectionDisambiguation(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartConnection("host1", pt(20, 20)))
	out, err := e.CompleteConnection("plc1")
	require.NoError(t, err)
	require.Equal(t, interaction.OutcomeDisambiguate, out.Kind)
	require.Len(t, out.Options, 2)
	assert.Equal(t, 0, h.sched.Len())

	out, err = e.ChooseType(0)
	require.NoError(t, err)
	assert.Equal(t, "host1", out.Relation.From)
	assert.Equal(t, "plc1", out.Relation.To)
	assert.Equal(t, 1, h.sched.Len())
}

func TestConnectionOverEmptyCanvasCancels(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.StartConnection("proc2", pt(0, 0)))
	out, err := h.engine.CompleteConnection("")
	require.NoError(t, err)
	assert.Equal(t, interaction.OutcomeCancelled, out.Kind)
	assert.Equal(t, 0, h.sched.Len())
}

func TestDeleteRelationBusyUntilConfirmed(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.DeleteEdge("r1"))
	edges := e.RenderedEdges()
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Busy)
	assert.Empty(t, edges[0].Bindings)
	assert.False(t, e.IsEdgeDeletable("r1"))
	assert.Error(t, e.DeleteEdge("r1"))

	h.sched.CompleteAll()
	assert.Empty(t, e.RenderedEdges())
	_, ok := e.Store().Relation("r1")
	assert.False(t, ok)
}

func TestDeleteRelationFailureClearsBusy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.DeleteRelation("r1"))
	require.True(t, h.sched.Fail(0, errors.New("down")))

	edges := h.engine.RenderedEdges()
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Busy)
	assert.True(t, h.engine.IsEdgeDeletable("r1"))
}

func TestCollapseHidesMembers(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.ToggleGroup("cell"))
	f := e.Frame()
	g, ok := f.Group("cell")
	require.True(t, ok)
	assert.True(t, g.Collapsed)
	_, drawn := f.Asset("host1")
	assert.False(t, drawn)
	assert.Empty(t, e.RenderedEdges(), "both ends hidden in the same collapsed group")

	h.sched.CompleteAll()
	require.NoError(t, e.ToggleGroup("cell"))
	h.sched.CompleteAll()
	assert.Equal(t, []string{"r1"}, edgeIDs(e.RenderedEdges()))
}

func TestCreateAssetReplacesPlaceholder(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	tmp, err := e.CreateAsset(schema.TypeServer, "Jump box", pt(40, 200), "cell")
	require.NoError(t, err)
	assert.Equal(t, "cell", h.groupOf(tmp))

	h.sched.CompleteAll()
	_, ok := e.Store().Asset(tmp)
	assert.False(t, ok)
	assert.Equal(t, "cell", h.groupOf("id-1"))
}

func TestCreateGroupAndDelete(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	tmp, err := e.CreateGroup("Field", pt(500, 250), geom.Size{Width: 300, Height: 200}, false, []string{"plc1"})
	require.NoError(t, err)
	assert.Equal(t, tmp, h.groupOf("plc1"))
	h.sched.CompleteAll()
	assert.Equal(t, "id-1", h.groupOf("plc1"))

	assert.Error(t, e.ResizeGroup("id-1", geom.Size{Width: 10, Height: 10}), "not resizable")

	require.NoError(t, e.DeleteGroup("id-1", true))
	h.sched.CompleteAll()
	_, ok := e.Store().Asset("plc1")
	assert.False(t, ok)
}

func TestRelocateGroupMovesMembers(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.StartGroupDrag("cell", pt(0, 0)))
	require.NoError(t, e.EndDrag(pt(50, 10)))
	assert.Equal(t, pt(70, 30), h.position(t, "host1"))
	h.sched.CompleteAll()
	assert.Equal(t, pt(70, 30), h.position(t, "host1"))
	g, _ := e.Store().Group("cell")
	assert.Equal(t, pt(50, 10), g.Position)
}

func TestMultiDragRelocatesOnly(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.ModifierDown())
	require.NoError(t, e.Click("proc2"))
	require.NoError(t, e.Click("plc1"))
	require.NoError(t, e.ModifierUp())
	require.NoError(t, e.StartAssetDrag("plc1", pt(600, 300)))
	require.NoError(t, e.EndDrag(pt(100, 300)))

	assert.Equal(t, 1, h.sched.Len())
	h.sched.CompleteAll()
	assert.Equal(t, pt(100, 100), h.position(t, "proc2"))
	assert.Equal(t, "", h.groupOf("proc2"))
}

func TestRecenterSuppressesRedraw(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	before := h.position(t, "plc1")
	require.NoError(t, e.Recenter())
	assert.True(t, e.Transform().SuppressRedraw)
	assert.NotEqual(t, before, h.position(t, "plc1"))

	h.sched.CompleteAll()
	assert.False(t, e.Transform().SuppressRedraw)
}

func TestRawGestureSettlesToOneTransition(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	e.BeginGesture("g1", "proc1")
	for _, ev := range []containment.RawEvent{
		{Gesture: "g1", AssetID: "proc1", GroupID: "cell", Kind: containment.RawRemoved},
		{Gesture: "g1", AssetID: "proc1", GroupID: "dmz", Kind: containment.RawAdded},
		{Gesture: "g1", AssetID: "proc1", GroupID: "dmz", Kind: containment.RawAdded},
	} {
		e.ObserveMembership(ev)
	}
	require.NoError(t, e.SettleGesture("g1"))
	assert.Equal(t, 1, h.sched.Len())
	h.sched.CompleteAll()
	assert.Equal(t, "dmz", h.groupOf("proc1"))
}

func TestLoadRefusedWhilePending(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.RelocateAsset("plc1", pt(0, 500)))
	assert.ErrorIs(t, h.engine.LoadFromService(context.Background()), ErrBusy)
}

func TestHoverPublishesFrame(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := h.engine.Bus().SubscribeWith(ctx, pubsub.TopicFrame, pubsub.Options{Buffer: 1, Policy: pubsub.KeepLatest})
	require.NoError(t, err)

	require.NoError(t, h.engine.Hover("plc1"))

	select {
	case msg := <-sub.Channel():
		f, ok := msg.(render.Frame)
		require.True(t, ok)
		a, ok := f.Asset("plc1")
		require.True(t, ok)
		assert.True(t, render.Has(a.Classes, render.ClassHovered))
		assert.NotNil(t, a.Overlay)
	case <-time.After(time.Second):
		t.Fatal("no frame published")
	}
}

func TestSetFiltersShowsHidden(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.SetRelationHidden("r1", true))
	h.sched.CompleteAll()
	assert.Empty(t, e.RenderedEdges())

	e.SetFilters(router.Filters{ShowHidden: true})
	require.Len(t, e.RenderedEdges(), 1)
	assert.Equal(t, router.StyleHidden, e.RenderedEdges()[0].Style)
}

func TestGroupEditsWaitForMembershipResponses(t *testing.T) {
	sched := &eagerScheduler{}
	e, svc := newEngine(t, sched)

	require.NoError(t, e.AddAssetToGroup("proc2", "dmz"))
	require.NoError(t, e.AddAssetToGroup("plc1", "dmz"))
	require.NoError(t, e.RenameGroup("dmz", "Perimeter"))
	assert.Equal(t, 1, e.Status().Pending)
	assert.Equal(t, 2, e.Status().Queued, "later edits of dmz wait for the first response")

	for sched.deliverNewest() {
	}

	g, ok := e.Store().Group("dmz")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"plc1", "proc2"}, g.Members)
	assert.Equal(t, "Perimeter", g.Label)
	a, _ := e.Store().Asset("plc1")
	assert.Equal(t, "dmz", a.GroupID)

	d, err := svc.Load(context.Background())
	require.NoError(t, err)
	for _, sg := range d.Groups {
		if sg.ID == "dmz" {
			assert.ElementsMatch(t, sg.Members, g.Members, "local members match the server")
		}
	}
}

func TestDeleteGroupWaitsForPendingRemoval(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.RemoveAssetFromGroup("host1"))
	require.NoError(t, e.DeleteGroup("cell", false))
	assert.Equal(t, 1, e.Status().Queued)
	assert.Equal(t, 1, h.sched.Len())

	require.True(t, h.sched.Fail(0, errors.New("unavailable")))
	assert.Equal(t, "cell", h.groupOf("host1"), "removal rolled back")
	_, ok := e.Store().Group("cell")
	assert.False(t, ok, "queued delete applied once the removal settled")

	require.True(t, h.sched.Complete(0))
	_, ok = e.Store().Group("cell")
	assert.False(t, ok)
	assert.Equal(t, "", h.groupOf("host1"))
	assert.Equal(t, "", h.groupOf("proc1"))
	assert.Equal(t, "", h.serverGroupOf(t, "host1"))
	assert.Zero(t, e.Status().Pending)
}

func TestQueuedDeleteRestoresRelationsCreatedWhileWaiting(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	require.NoError(t, e.RelocateAsset("plc1", pt(650, 300)))
	require.NoError(t, e.DeleteAsset("plc1"))
	assert.Equal(t, 1, e.Status().Queued)

	_, err := e.CreateRelation("plc1", "host1", "connects-to", "")
	require.NoError(t, err)
	require.True(t, h.sched.Complete(1))
	_, ok := e.Store().Relation("id-1")
	require.True(t, ok)

	require.True(t, h.sched.Complete(0))
	_, ok = e.Store().Asset("plc1")
	assert.False(t, ok, "delete applied once the relocate settled")
	_, ok = e.Store().Relation("id-1")
	assert.False(t, ok)

	require.True(t, h.sched.Fail(0, errors.New("unavailable")))
	_, ok = e.Store().Asset("plc1")
	assert.True(t, ok)
	_, ok = e.Store().Relation("id-1")
	assert.True(t, ok, "relation created while the delete waited comes back")
}

func TestRecenterOnSelectedAssets(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	host := h.position(t, "host1")
	proc, plc := h.position(t, "proc2"), h.position(t, "plc1")
	require.NoError(t, e.RecenterOnEntities([]string{"proc2", "plc1", "proc2"}))
	assert.Equal(t, 1, h.sched.Len(), "one batch relocation")
	assert.Equal(t, host, h.position(t, "host1"), "assets outside the set stay put")
	assert.NotEqual(t, plc, h.position(t, "plc1"))
	assert.Equal(t, plc.Sub(proc), h.position(t, "plc1").Sub(h.position(t, "proc2")), "relative layout kept")

	h.sched.CompleteAll()
	require.NoError(t, e.RecenterOnEntities([]string{"plc1", "proc2"}))
	assert.Zero(t, h.sched.Len(), "already centred")

	assert.True(t, model.IsNotFound(e.RecenterOnEntities([]string{"plc1", "ghost"})))
	assert.Zero(t, h.sched.Len())
}

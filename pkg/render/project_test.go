package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/store"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

type fixture struct {
	st  *store.Store
	mgr *containment.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(store.Options{})
	for id, p := range map[string]geom.Point{"a1": {X: 0, Y: 0}, "a2": {X: 300, Y: 0}, "a3": {X: 600, Y: 0}} {
		require.NoError(t, st.UpsertAsset(model.Asset{ID: id, Type: "Host", Name: id, Position: p}, store.OriginLocal))
	}
	require.NoError(t, st.UpsertGroup(model.Group{
		ID: "g1", Label: "Cell", Position: geom.Point{X: 580, Y: -20},
		Size: geom.Size{Width: 200, Height: 120}, Expanded: false, Members: []string{"a3"},
	}, store.OriginLocal))
	return &fixture{st: st, mgr: containment.NewManager(st, containment.DefaultShapes(), nil)}
}

func (f *fixture) project(t *testing.T, in Input) Frame {
	t.Helper()
	var frame Frame
	require.NoError(t, f.mgr.WithMembersResolved(f.st, func(l *containment.Layout) error {
		in.Entities = f.st
		in.Layout = l
		in.AssetSize = f.mgr.Shapes().Asset
		if in.Transform.Zoom == 0 {
			in.Transform = viewport.Transform{Zoom: 1}
		}
		frame = Project(in)
		return nil
	}))
	return frame
}

func TestProjectHidesCollapsedMembers(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{})

	_, ok := frame.Asset("a3")
	assert.False(t, ok, "member of a collapsed group is not drawn")
	assert.Len(t, frame.Assets, 2)

	g, ok := frame.Group("g1")
	require.True(t, ok)
	assert.True(t, g.Collapsed)
	assert.True(t, Has(g.Classes, ClassCollapsed))
	assert.Equal(t, f.mgr.Shapes().CollapsedGroup, g.Rect.Size)
	assert.Equal(t, 1, g.Members)
	assert.NotNil(t, frame.Edges)
}

func TestProjectInteractionClasses(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{Interaction: interaction.State{
		Hovered:  "a1",
		Overlay:  "a1",
		Selected: []string{"a1", "a2"},
	}})

	a1, _ := frame.Asset("a1")
	assert.True(t, Has(a1.Classes, ClassSelected))
	assert.True(t, Has(a1.Classes, ClassHovered))
	assert.True(t, Has(a1.Classes, ClassOverlayExpanded))
	require.NotNil(t, a1.Overlay)
	assert.Equal(t, interaction.OverlayRect(a1.Rect), *a1.Overlay)

	a2, _ := frame.Asset("a2")
	assert.Equal(t, []Class{ClassSelected}, a2.Classes)
}

func TestProjectConnectionClasses(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{Interaction: interaction.State{
		Mode: interaction.ModeConnect,
		Connection: interaction.Connection{
			Phase:      interaction.PhaseTargetHover,
			SourceID:   "a1",
			Candidates: []string{"a2"},
			TargetID:   "a2",
		},
	}})

	a1, _ := frame.Asset("a1")
	a2, _ := frame.Asset("a2")
	assert.Equal(t, []Class{ClassConnecting}, a1.Classes)
	assert.Equal(t, []Class{ClassValidTarget, ClassTarget}, a2.Classes)
	assert.Equal(t, interaction.ModeConnect, frame.Mode)
	assert.Equal(t, "a1", frame.Connection.SourceID)
}

func TestProjectFadesNonCandidates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.Expand("g1"))
	frame := f.project(t, Input{Interaction: interaction.State{
		Mode:       interaction.ModeConnect,
		Connection: interaction.Connection{Phase: interaction.PhaseDrawing, SourceID: "a1", Candidates: []string{"a2"}},
	}})

	a3, ok := frame.Asset("a3")
	require.True(t, ok)
	assert.Equal(t, []Class{ClassFaded}, a3.Classes)
}

func TestProjectPendingAndGrouping(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{
		Pending:      func(r store.Ref) bool { return r == store.AssetRef("a2") },
		PendingCount: 1,
		Grouping:     func(id string) bool { return id == "g1" },
		Stale:        true,
	})

	a2, _ := frame.Asset("a2")
	assert.True(t, Has(a2.Classes, ClassPending))
	g, _ := frame.Group("g1")
	assert.True(t, Has(g.Classes, ClassGrouping))
	assert.Equal(t, 1, frame.Pending)
	assert.True(t, frame.Stale)
}

func TestProjectDragPreview(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{
		Interaction: interaction.State{Mode: interaction.ModeDrag, Selected: []string{"a1", "a2"}},
		Previews: []interaction.DragPreview{
			{ID: "a1", Position: geom.Point{X: 10, Y: 10}, Overlay: geom.Rect{Min: geom.Point{X: 10, Y: -18}}},
			{ID: "a2", Position: geom.Point{X: 310, Y: 10}},
		},
	})

	a1, _ := frame.Asset("a1")
	assert.Equal(t, geom.Point{X: 10, Y: 10}, a1.Rect.Min)
	assert.True(t, Has(a1.Classes, ClassDragging))
	require.NotNil(t, a1.Overlay)
	assert.Equal(t, geom.Point{X: 10, Y: -18}, a1.Overlay.Min)

	a2, _ := frame.Asset("a2")
	assert.Equal(t, geom.Point{X: 310, Y: 10}, a2.Rect.Min)
}

func TestProjectScreenCoordinates(t *testing.T) {
	f := newFixture(t)
	frame := f.project(t, Input{Transform: viewport.Transform{Zoom: 2, Origin: geom.Point{X: -100, Y: 0}}})

	a2, _ := frame.Asset("a2")
	assert.Equal(t, geom.Point{X: 200, Y: 0}, a2.Screen.Min)
	assert.Equal(t, a2.Rect.Size.Width/2, a2.Screen.Size.Width)
}

func TestProjectCarriesEdges(t *testing.T) {
	f := newFixture(t)
	edges := []router.Edge{{ID: "r1", Style: router.StyleAsserted}}
	frame := f.project(t, Input{Edges: edges})
	assert.Equal(t, edges, frame.Edges)
}

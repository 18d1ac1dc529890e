package render

import (
	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/store"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

// Input is everything a projection reads. Nothing in it is modified.
type Input struct {
	Seq         uint64
	Entities    store.Reader
	Layout      *containment.Layout
	Interaction interaction.State
	// Previews are the transient positions of dragged entities
	Previews []interaction.DragPreview
	// Pending reports whether an entity has an outstanding request
	Pending      func(store.Ref) bool
	PendingCount int
	// Grouping reports whether a group has a membership change in flight
	Grouping  func(groupID string) bool
	Edges     []router.Edge
	Stale     bool
	Transform viewport.Transform
	AssetSize geom.Size
}

// Project builds the frame for in
func Project(in Input) Frame {
	f := Frame{
		Seq:        in.Seq,
		Transform:  in.Transform,
		Mode:       in.Interaction.Mode,
		Edges:      in.Edges,
		Connection: in.Interaction.Connection,
		Selected:   in.Interaction.Selected,
		Pending:    in.PendingCount,
		Stale:      in.Stale,
	}
	if f.Edges == nil {
		f.Edges = []router.Edge{}
	}

	previews := make(map[string]interaction.DragPreview, len(in.Previews))
	for _, p := range in.Previews {
		previews[p.ID] = p
	}
	pending := in.Pending
	if pending == nil {
		pending = func(store.Ref) bool { return false }
	}
	grouping := in.Grouping
	if grouping == nil {
		grouping = func(string) bool { return false }
	}

	f.Groups = make([]GroupView, 0)
	for _, g := range in.Entities.Groups() {
		gv := GroupView{ID: g.ID, Label: g.Label, Members: len(g.Members), Rect: g.Bounds()}
		if in.Layout != nil {
			if geo, ok := in.Layout.Group(g.ID); ok {
				gv.Rect = geo.Rect
				gv.Collapsed = geo.Collapsed
			}
		}
		if pv, ok := previews[g.ID]; ok {
			gv.Rect = gv.Rect.Translate(pv.Position.Sub(g.Position))
			gv.Classes = append(gv.Classes, ClassDragging)
		}
		gv.Screen = in.Transform.RectToScreen(gv.Rect)
		if gv.Collapsed {
			gv.Classes = append(gv.Classes, ClassCollapsed)
		}
		if grouping(g.ID) {
			gv.Classes = append(gv.Classes, ClassGrouping)
		}
		if pending(store.GroupRef(g.ID)) {
			gv.Classes = append(gv.Classes, ClassPending)
		}
		f.Groups = append(f.Groups, gv)
	}

	st := in.Interaction
	conn := st.Connection
	f.Assets = make([]AssetView, 0)
	for _, a := range in.Entities.Assets() {
		if in.Layout != nil && !in.Layout.Visible(a.ID) {
			continue
		}
		av := AssetView{
			ID: a.ID, Type: a.Type, Name: a.Name, GroupID: a.GroupID,
			Rect: geom.RectAt(a.Position, in.AssetSize),
		}
		if in.Layout != nil {
			if r, ok := in.Layout.AssetRect(a.ID); ok {
				av.Rect = r
			}
		}
		if pv, ok := previews[a.ID]; ok {
			av.Rect = geom.RectAt(pv.Position, av.Rect.Size)
			av.Classes = append(av.Classes, ClassDragging)
			if in.Interaction.IsSelected(a.ID) {
				o := pv.Overlay
				av.Overlay = &o
			}
		} else if pv, ok := previews[a.GroupID]; ok {
			if g, ok := in.Entities.Group(a.GroupID); ok {
				av.Rect = av.Rect.Translate(pv.Position.Sub(g.Position))
			}
		}
		av.Screen = in.Transform.RectToScreen(av.Rect)

		if st.IsSelected(a.ID) {
			av.Classes = append(av.Classes, ClassSelected)
		}
		if st.Hovered == a.ID {
			av.Classes = append(av.Classes, ClassHovered)
		}
		if st.Overlay == a.ID {
			o := interaction.OverlayRect(av.Rect)
			av.Overlay = &o
			av.Classes = append(av.Classes, ClassOverlayExpanded)
		}
		if conn.Active() {
			switch {
			case a.ID == conn.SourceID:
				av.Classes = append(av.Classes, ClassConnecting)
			case conn.IsCandidate(a.ID):
				av.Classes = append(av.Classes, ClassValidTarget)
				if a.ID == conn.TargetID {
					av.Classes = append(av.Classes, ClassTarget)
				}
			default:
				av.Classes = append(av.Classes, ClassFaded)
			}
		}
		if pending(store.AssetRef(a.ID)) {
			av.Classes = append(av.Classes, ClassPending)
		}
		f.Assets = append(f.Assets, av)
	}
	return f
}

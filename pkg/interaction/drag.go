package interaction

import (
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// StartAssetDrag begins dragging an asset. When the asset is selected and
// the selection holds more than one asset, the whole selection moves.
func (m *Machine) StartAssetDrag(assetID string, pointer geom.Point) error {
	if m.state.Mode != ModeNone && m.state.Mode != ModeMultiSelect {
		return m.reject("StartAssetDrag")
	}
	if _, ok := m.entities.Asset(assetID); !ok {
		return m.reject("StartAssetDrag")
	}
	ids := []string{assetID}
	if m.state.IsSelected(assetID) && len(m.state.Selected) > 1 {
		ids = slices.Clone(m.state.Selected)
	}
	origins := make(map[string]geom.Point, len(ids))
	for _, id := range ids {
		a, ok := m.entities.Asset(id)
		if !ok {
			continue
		}
		origins[id] = a.Position
	}
	m.beginDrag(&Drag{Kind: DragAssets, IDs: ids, Start: pointer, Origins: origins})
	return nil
}

// StartGroupDrag begins dragging a group
func (m *Machine) StartGroupDrag(groupID string, pointer geom.Point) error {
	if m.state.Mode != ModeNone && m.state.Mode != ModeMultiSelect {
		return m.reject("StartGroupDrag")
	}
	g, ok := m.entities.Group(groupID)
	if !ok {
		return m.reject("StartGroupDrag")
	}
	m.beginDrag(&Drag{
		Kind:    DragGroup,
		IDs:     []string{groupID},
		Start:   pointer,
		Origins: map[string]geom.Point{groupID: g.Position},
	})
	return nil
}

func (m *Machine) beginDrag(d *Drag) {
	// Dragging takes over from multi-select; the selection itself survives.
	m.state.Mode = ModeDrag
	m.state.Drag = d
}

// DragTo moves the pointer during a drag
func (m *Machine) DragTo(pointer geom.Point) error {
	if m.state.Mode != ModeDrag {
		return m.reject("DragTo")
	}
	m.state.Drag.Delta = pointer.Sub(m.state.Drag.Start)
	return nil
}

// DragPreview is the transient position of one dragged entity
type DragPreview struct {
	ID       string
	Position geom.Point
	// Overlay is the recomputed glyph-bar geometry for a dragged asset
	Overlay geom.Rect
}

// Preview returns where every dragged entity is drawn right now, ordered
// by ID. size is the asset shape used for overlay geometry.
func (m *Machine) Preview(size geom.Size) []DragPreview {
	d := m.state.Drag
	if d == nil {
		return nil
	}
	out := make([]DragPreview, 0, len(d.IDs))
	for _, id := range d.IDs {
		origin, ok := d.Origins[id]
		if !ok {
			continue
		}
		p := origin.Add(d.Delta)
		pv := DragPreview{ID: id, Position: p}
		if d.Kind == DragAssets {
			pv.Overlay = OverlayRect(geom.RectAt(p, size))
		}
		out = append(out, pv)
	}
	slices.SortFunc(out, func(a, b DragPreview) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// DragResult is a finished drag: every moved entity's final position
type DragResult struct {
	Kind  DragKind
	Delta geom.Point
	Moves []model.Placement
}

// EndDrag finishes the drag at pointer. A drag that did not move yields no
// moves.
func (m *Machine) EndDrag(pointer geom.Point) (DragResult, error) {
	if m.state.Mode != ModeDrag {
		return DragResult{}, m.reject("EndDrag")
	}
	m.state.Drag.Delta = pointer.Sub(m.state.Drag.Start)
	d := m.state.Drag
	res := DragResult{Kind: d.Kind, Delta: d.Delta}
	if d.Delta != (geom.Point{}) {
		for _, pv := range m.Preview(geom.Size{}) {
			res.Moves = append(res.Moves, model.Placement{ID: pv.ID, Position: pv.Position})
		}
	}
	m.endDrag()
	return res, nil
}

// CancelDrag drops the drag; nothing was written, so nothing is undone
func (m *Machine) CancelDrag() {
	if m.state.Mode == ModeDrag {
		m.endDrag()
	}
}

func (m *Machine) endDrag() {
	m.state.Drag = nil
	m.state.Mode = ModeNone
}

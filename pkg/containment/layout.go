package containment

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// GroupGeometry is a group's rendered rectangle for one pass
type GroupGeometry struct {
	ID        string    `json:"id"`
	Rect      geom.Rect `json:"rect"`
	Collapsed bool      `json:"collapsed"`
}

// Layout is the containment-resolved geometry read by a router pass:
// every asset at its real coordinates, every group at its rendered
// geometry, and the collapsed group hiding each member, if any.
type Layout struct {
	assets      map[string]geom.Rect
	groups      map[string]GroupGeometry
	collapsedOf map[string]string
}

// AssetRect returns the asset's real rectangle, even when hidden
func (l *Layout) AssetRect(id string) (geom.Rect, bool) {
	r, ok := l.assets[id]
	return r, ok
}

// GroupRect returns the group's rendered rectangle
func (l *Layout) GroupRect(id string) (geom.Rect, bool) {
	g, ok := l.groups[id]
	return g.Rect, ok
}

// Group returns the group's rendered geometry
func (l *Layout) Group(id string) (GroupGeometry, bool) {
	g, ok := l.groups[id]
	return g, ok
}

// CollapsedGroupOf returns the collapsed group hiding the asset
func (l *Layout) CollapsedGroupOf(assetID string) (string, bool) {
	g, ok := l.collapsedOf[assetID]
	return g, ok
}

// Visible reports whether the asset is drawn, i.e. exists and is not
// hidden inside a collapsed group.
func (l *Layout) Visible(assetID string) bool {
	if _, ok := l.assets[assetID]; !ok {
		return false
	}
	_, hidden := l.collapsedOf[assetID]
	return !hidden
}

// AssetBounds returns the asset's rendered rectangle
func (m *Manager) AssetBounds(a *model.Asset) geom.Rect {
	return geom.RectAt(a.Position, m.shapes.Asset)
}

// ExpandedBounds returns the geometry of g drawn expanded: its stored
// rectangle grown to enclose every member plus padding.
func (m *Manager) ExpandedBounds(g *model.Group, r store.Reader) geom.Rect {
	bounds := g.Bounds()
	for _, id := range g.Members {
		a, ok := r.Asset(id)
		if !ok {
			continue
		}
		bounds = bounds.Union(m.AssetBounds(a).Inset(-m.shapes.GroupPadding))
	}
	return bounds
}

// CollapsedBounds returns the placeholder geometry of g drawn collapsed
func (m *Manager) CollapsedBounds(g *model.Group) geom.Rect {
	return geom.RectAt(g.Position, m.shapes.CollapsedGroup)
}

// RenderedBounds returns g's geometry for its persisted expanded flag
func (m *Manager) RenderedBounds(g *model.Group, r store.Reader) geom.Rect {
	if g.Expanded {
		return m.ExpandedBounds(g, r)
	}
	return m.CollapsedBounds(g)
}

// WithMembersResolved expands every group so hidden members resolve
// against their real coordinates, re-collapses each group whose persisted
// flag is false, and runs fn over the resulting layout. The store is not
// modified.
func (m *Manager) WithMembersResolved(r store.Reader, fn func(*Layout) error) error {
	layout := &Layout{
		assets:      make(map[string]geom.Rect),
		groups:      make(map[string]GroupGeometry),
		collapsedOf: make(map[string]string),
	}

	for _, a := range r.Assets() {
		layout.assets[a.ID] = m.AssetBounds(a)
	}
	groups := r.Groups()
	for _, g := range groups {
		layout.groups[g.ID] = GroupGeometry{ID: g.ID, Rect: m.ExpandedBounds(g, r)}
	}

	collapsed := 0
	for _, g := range groups {
		if g.Expanded {
			continue
		}
		collapsed++
		layout.groups[g.ID] = GroupGeometry{ID: g.ID, Rect: m.CollapsedBounds(g), Collapsed: true}
		for _, id := range g.Members {
			layout.collapsedOf[id] = g.ID
		}
	}
	if collapsed > 0 {
		m.logger.Debug("resolved collapsed members", logging.Count(collapsed))
	}
	return fn(layout)
}

// Package render projects engine state into a frame descriptor a host
// shell can draw without consulting any other component.
package render

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

// Class is a visual state flag on an asset or group
type Class string

const (
	ClassSelected        Class = "selected"
	ClassHovered         Class = "hovered"
	ClassOverlayExpanded Class = "overlay-expanded"
	ClassFaded           Class = "faded"
	ClassValidTarget     Class = "valid-target"
	ClassTarget          Class = "target"
	ClassConnecting      Class = "connecting"
	ClassPending         Class = "pending"
	ClassDragging        Class = "dragging"
	ClassGrouping        Class = "grouping-in-progress"
	ClassCollapsed       Class = "collapsed"
)

// AssetView is one drawable asset
type AssetView struct {
	ID      string     `json:"id"`
	Type    string     `json:"type"`
	Name    string     `json:"name"`
	GroupID string     `json:"groupId,omitempty"`
	Rect    geom.Rect  `json:"rect"`
	Screen  geom.Rect  `json:"screen"`
	Overlay *geom.Rect `json:"overlay,omitempty"`
	Classes []Class    `json:"classes,omitempty"`
}

// GroupView is one drawable group
type GroupView struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Rect      geom.Rect `json:"rect"`
	Screen    geom.Rect `json:"screen"`
	Collapsed bool      `json:"collapsed"`
	Members   int       `json:"members"`
	Classes   []Class   `json:"classes,omitempty"`
}

// Frame is the complete render descriptor for one state of the engine.
// Assets hidden inside a collapsed group are omitted.
type Frame struct {
	Seq        uint64                 `json:"seq"`
	Transform  viewport.Transform     `json:"transform"`
	Mode       interaction.Mode       `json:"mode"`
	Assets     []AssetView            `json:"assets"`
	Groups     []GroupView            `json:"groups"`
	Edges      []router.Edge          `json:"edges"`
	Connection interaction.Connection `json:"connection"`
	Selected   []string               `json:"selected,omitempty"`
	Pending    int                    `json:"pending"`
	// Stale is set when the edge set is from an earlier pass because
	// routing is suppressed during grouping
	Stale bool `json:"stale,omitempty"`
}

// Asset returns the view of an asset, if drawn
func (f *Frame) Asset(id string) (AssetView, bool) {
	for _, a := range f.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return AssetView{}, false
}

// Group returns the view of a group
func (f *Frame) Group(id string) (GroupView, bool) {
	for _, g := range f.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return GroupView{}, false
}

// Has reports whether classes contains c
func Has(classes []Class, c Class) bool {
	for _, x := range classes {
		if x == c {
			return true
		}
	}
	return false
}

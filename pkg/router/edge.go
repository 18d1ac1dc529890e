// Package router computes the rendered edge set: visibility, anchors on
// shape perimeters, and label placement for parallel edges.
//
// Every pass discards the previous edge set and rebuilds it from the
// current entities. There is no incremental diffing; a pass over unchanged
// input must produce identical output.
package router

import (
	"github.com/dd0wney/cluso-canvas/pkg/geom"
)

// Style tags how an edge is drawn
type Style string

const (
	StyleAsserted Style = "asserted"
	StyleInferred Style = "inferred"
	// StyleHidden marks a hidden edge drawn because ShowHidden is on
	StyleHidden Style = "hidden"
)

// Binding is an interaction a rendered edge responds to
type Binding string

const (
	BindHover       Binding = "hover"
	BindContextMenu Binding = "context-menu"
	BindClick       Binding = "click"
)

// Filters are the view toggles applied to every pass
type Filters struct {
	ShowInferred bool `json:"showInferred" yaml:"showInferred"`
	ShowHidden   bool `json:"showHidden" yaml:"showHidden"`
}

// Endpoint is one resolved end of a rendered edge
type Endpoint struct {
	AssetID string      `json:"assetId"`
	Anchor  geom.Anchor `json:"anchor"`
	// ViaGroup is set when the asset is hidden in a collapsed group and the
	// edge is anchored to that group's boundary instead
	ViaGroup string `json:"viaGroup,omitempty"`
}

// Edge is one rendered connector
type Edge struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Label         string    `json:"label"`
	Asserted      bool      `json:"asserted"`
	Style         Style     `json:"style"`
	Source        Endpoint  `json:"source"`
	Target        Endpoint  `json:"target"`
	LabelLocation float64   `json:"labelLocation"`
	Bindings      []Binding `json:"bindings"`
	// Busy replaces the bindings while a delete request is in flight
	Busy bool `json:"busy"`
}

// Deletable reports whether the user may delete the edge: it must be
// asserted and not already being deleted.
func Deletable(e Edge) bool {
	return e.Asserted && !e.Busy
}

var interactive = []Binding{BindHover, BindContextMenu, BindClick}

// Package viewport owns zoom and pan and converts between screen and model
// coordinates.
//
// Zoom is an inverse scale factor: one screen pixel covers Zoom model units.
// The origin is the model point drawn at the screen's top-left corner, so
//
//	screen = (model - origin) / zoom
//	model  = screen*zoom + origin
package viewport

import (
	"math"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// Config bounds the viewport
type Config struct {
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	MinZoom        float64 `yaml:"minZoom"`
	MaxZoom        float64 `yaml:"maxZoom"`
	BoundaryMargin float64 `yaml:"boundaryMargin"`
}

// DefaultConfig returns a 1280x800 view allowing zoom between 0.25 and 4
func DefaultConfig() Config {
	return Config{
		Width:          1280,
		Height:         800,
		MinZoom:        0.25,
		MaxZoom:        4,
		BoundaryMargin: 200,
	}
}

// Transform is the exposed view state
type Transform struct {
	Zoom           float64    `json:"zoom"`
	Origin         geom.Point `json:"origin"`
	SuppressRedraw bool       `json:"suppressRedraw"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
}

// Viewport holds the local display transform. Nothing here is persisted.
type Viewport struct {
	cfg      Config
	zoom     float64
	origin   geom.Point
	suppress bool
	logger   logging.Logger
}

// New creates a viewport at zoom 1 with the origin at the top-left corner
func New(cfg Config, logger logging.Logger) *Viewport {
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = DefaultConfig().MinZoom
	}
	if cfg.MaxZoom < cfg.MinZoom {
		cfg.MaxZoom = cfg.MinZoom
	}
	return &Viewport{
		cfg:    cfg,
		zoom:   math.Min(math.Max(1, cfg.MinZoom), cfg.MaxZoom),
		logger: logging.OrNop(logger).With(logging.Component("viewport")),
	}
}

// Zoom returns the current inverse scale factor
func (v *Viewport) Zoom() float64 { return v.zoom }

// Origin returns the model point at the top-left of the screen
func (v *Viewport) Origin() geom.Point { return v.origin }

// Size returns the visible area in screen pixels
func (v *Viewport) Size() geom.Size {
	return geom.Size{Width: v.cfg.Width, Height: v.cfg.Height}
}

// Transform returns the current view state
func (v *Viewport) Transform() Transform {
	return Transform{
		Zoom:           v.zoom,
		Origin:         v.origin,
		SuppressRedraw: v.suppress,
		Width:          v.cfg.Width,
		Height:         v.cfg.Height,
	}
}

// ToScreen converts a model point to screen pixels
func (v *Viewport) ToScreen(p geom.Point) geom.Point {
	return p.Sub(v.origin).Scale(1 / v.zoom)
}

// ToModel converts screen pixels to a model point
func (v *Viewport) ToModel(p geom.Point) geom.Point {
	return p.Scale(v.zoom).Add(v.origin)
}

// Pan moves the view by a screen-space delta. Dragging the canvas right
// reveals content to the left, so the origin moves against the delta.
func (v *Viewport) Pan(delta geom.Point) {
	v.origin = v.origin.Sub(delta.Scale(v.zoom))
	v.clamp()
}

// ZoomBy multiplies the inverse scale by factor, keeping the screen centre
// fixed. Factors above 1 zoom out.
func (v *Viewport) ZoomBy(factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		v.logger.Warn("ignoring zoom factor", logging.Float64("factor", factor))
		return
	}
	center := geom.Point{X: v.cfg.Width / 2, Y: v.cfg.Height / 2}
	pivot := v.ToModel(center)

	next := math.Min(math.Max(v.zoom*factor, v.cfg.MinZoom), v.cfg.MaxZoom)
	v.zoom = next
	v.origin = pivot.Sub(center.Scale(v.zoom))
	v.clamp()
}

// clamp keeps the diagram origin's screen position inside the view boundary:
// [-margin, width+margin] x [-margin, height+margin].
func (v *Viewport) clamp() {
	m := v.cfg.BoundaryMargin
	lowX, highX := -(v.cfg.Width+m)*v.zoom, m*v.zoom
	lowY, highY := -(v.cfg.Height+m)*v.zoom, m*v.zoom
	clamped := geom.Point{
		X: math.Min(math.Max(v.origin.X, lowX), highX),
		Y: math.Min(math.Max(v.origin.Y, lowY), highY),
	}
	if clamped != v.origin {
		v.logger.Debug("pan clamped to view boundary")
	}
	v.origin = clamped
}

// SetSuppressRedraw freezes or releases redraws during bulk operations
func (v *Viewport) SetSuppressRedraw(on bool) { v.suppress = on }

// SuppressRedraw reports whether redraws are frozen
func (v *Viewport) SuppressRedraw() bool { return v.suppress }

// RecenterOnEntities computes the translation that centres the bounding box
// of the given asset positions in the visible area and returns the new
// position of every asset, ordered by ID. It returns nil when there is
// nothing to move. Asset positions are server-owned, so the caller issues
// the result as one batch relocation.
func (v *Viewport) RecenterOnEntities(positions []model.Placement) []model.Placement {
	if len(positions) == 0 {
		return nil
	}
	points := make([]geom.Point, len(positions))
	for i, p := range positions {
		points[i] = p.Position
	}
	box, _ := geom.BoundingBox(points)
	target := v.ToModel(geom.Point{X: v.cfg.Width / 2, Y: v.cfg.Height / 2})
	delta := target.Sub(box.Center())
	if delta == (geom.Point{}) {
		return nil
	}

	out := make([]model.Placement, len(positions))
	for i, p := range positions {
		out[i] = model.Placement{ID: p.ID, Position: p.Position.Add(delta)}
	}
	slices.SortFunc(out, func(a, b model.Placement) int { return strings.Compare(a.ID, b.ID) })
	v.logger.Debug("recenter", logging.Count(len(out)),
		logging.Float64("dx", delta.X), logging.Float64("dy", delta.Y))
	return out
}

// ToScreen converts a model point using a captured transform
func (t Transform) ToScreen(p geom.Point) geom.Point {
	return p.Sub(t.Origin).Scale(1 / t.Zoom)
}

// ToModel converts screen pixels using a captured transform
func (t Transform) ToModel(p geom.Point) geom.Point {
	return p.Scale(t.Zoom).Add(t.Origin)
}

// RectToScreen converts a model rectangle using a captured transform
func (t Transform) RectToScreen(r geom.Rect) geom.Rect {
	return geom.Rect{
		Min:  t.ToScreen(r.Min),
		Size: geom.Size{Width: r.Size.Width / t.Zoom, Height: r.Size.Height / t.Zoom},
	}
}

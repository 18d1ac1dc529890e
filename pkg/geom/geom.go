// Package geom provides the model-space geometry shared by the viewport,
// containment and routing code.
package geom

import (
	"math"
)

// Point is a 2D coordinate in model units unless stated otherwise
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by d
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale multiplies both coordinates by f
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner
type Rect struct {
	Min  Point `json:"min"`
	Size Size  `json:"size"`
}

// RectAt builds a rect from a top-left position and a size
func RectAt(p Point, s Size) Rect {
	return Rect{Min: p, Size: s}
}

// Max returns the bottom-right corner
func (r Rect) Max() Point {
	return Point{X: r.Min.X + r.Size.Width, Y: r.Min.Y + r.Size.Height}
}

// Center returns the rect's center point
func (r Rect) Center() Point {
	return Point{X: r.Min.X + r.Size.Width/2, Y: r.Min.Y + r.Size.Height/2}
}

// Empty reports whether the rect has no area
func (r Rect) Empty() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Point) bool {
	max := r.Max()
	return p.X >= r.Min.X && p.X <= max.X && p.Y >= r.Min.Y && p.Y <= max.Y
}

// ContainsRect reports whether o lies entirely inside r
func (r Rect) ContainsRect(o Rect) bool {
	return r.Contains(o.Min) && r.Contains(o.Max())
}

// Translate returns r moved by d
func (r Rect) Translate(d Point) Rect {
	return Rect{Min: r.Min.Add(d), Size: r.Size}
}

// Inset shrinks r by n on every side; a negative n grows it
func (r Rect) Inset(n float64) Rect {
	return Rect{
		Min:  Point{X: r.Min.X + n, Y: r.Min.Y + n},
		Size: Size{Width: r.Size.Width - 2*n, Height: r.Size.Height - 2*n},
	}
}

// Union returns the smallest rect containing both r and o. An empty receiver
// is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	rmax, omax := r.Max(), o.Max()
	min := Point{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)}
	max := Point{X: math.Max(rmax.X, omax.X), Y: math.Max(rmax.Y, omax.Y)}
	return Rect{Min: min, Size: Size{Width: max.X - min.X, Height: max.Y - min.Y}}
}

// Area returns width*height
func (r Rect) Area() float64 {
	return r.Size.Width * r.Size.Height
}

// BoundingBox returns the smallest rect containing every point. ok is false
// for an empty input.
func BoundingBox(points []Point) (box Rect, ok bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	min, max := points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return Rect{Min: min, Size: Size{Width: max.X - min.X, Height: max.Y - min.Y}}, true
}

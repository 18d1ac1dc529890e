package geom

import (
	"math"
)

// Side names one edge of a rectangle
type Side int

const (
	SideTop Side = iota
	SideRight
	SideBottom
	SideLeft
)

func (s Side) String() string {
	switch s {
	case SideTop:
		return "top"
	case SideRight:
		return "right"
	case SideBottom:
		return "bottom"
	case SideLeft:
		return "left"
	default:
		return "unknown"
	}
}

// MarshalText encodes the side by name
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Anchor is a connection point on a shape's perimeter
type Anchor struct {
	Point Point `json:"point"`
	Side  Side  `json:"side"`
}

// FacingSide picks the side of from that faces toward. The dominant axis of
// the center-to-center vector wins; ties go to the horizontal sides.
func FacingSide(from Rect, toward Point) Side {
	c := from.Center()
	dx, dy := toward.X-c.X, toward.Y-c.Y
	if math.Abs(dx) > math.Abs(dy) {
		if dx >= 0 {
			return SideRight
		}
		return SideLeft
	}
	if dy >= 0 {
		return SideBottom
	}
	return SideTop
}

// SideMidpoint returns the midpoint of side s of r
func SideMidpoint(r Rect, s Side) Point {
	c := r.Center()
	max := r.Max()
	switch s {
	case SideTop:
		return Point{X: c.X, Y: r.Min.Y}
	case SideRight:
		return Point{X: max.X, Y: c.Y}
	case SideBottom:
		return Point{X: c.X, Y: max.Y}
	default:
		return Point{X: r.Min.X, Y: c.Y}
	}
}

// AnchorPair computes the deterministic anchors for a connector between two
// shapes: each end sits on the midpoint of the side facing the other shape.
func AnchorPair(from, to Rect) (Anchor, Anchor) {
	fs := FacingSide(from, to.Center())
	ts := FacingSide(to, from.Center())
	return Anchor{Point: SideMidpoint(from, fs), Side: fs},
		Anchor{Point: SideMidpoint(to, ts), Side: ts}
}

// BoundaryCrossing returns where the segment from inside (a point in r) to
// outside leaves r, and the side it leaves through. When outside is inside r
// the facing-side midpoint is returned instead.
func BoundaryCrossing(r Rect, inside, outside Point) Anchor {
	if r.Contains(outside) || !r.Contains(inside) {
		s := FacingSide(r, outside)
		return Anchor{Point: SideMidpoint(r, s), Side: s}
	}

	dx, dy := outside.X-inside.X, outside.Y-inside.Y
	max := r.Max()
	best := math.Inf(1)
	side := SideRight

	try := func(t float64, s Side) {
		if t < 0 || t > 1 || t >= best {
			return
		}
		p := Point{X: inside.X + t*dx, Y: inside.Y + t*dy}
		const eps = 1e-9
		if p.X < r.Min.X-eps || p.X > max.X+eps || p.Y < r.Min.Y-eps || p.Y > max.Y+eps {
			return
		}
		best, side = t, s
	}
	if dx != 0 {
		try((max.X-inside.X)/dx, SideRight)
		try((r.Min.X-inside.X)/dx, SideLeft)
	}
	if dy != 0 {
		try((max.Y-inside.Y)/dy, SideBottom)
		try((r.Min.Y-inside.Y)/dy, SideTop)
	}
	if math.IsInf(best, 1) {
		s := FacingSide(r, outside)
		return Anchor{Point: SideMidpoint(r, s), Side: s}
	}
	return Anchor{Point: Point{X: inside.X + best*dx, Y: inside.Y + best*dy}, Side: side}
}

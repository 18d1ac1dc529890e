package router

import (
	"slices"
	"time"

	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

// DefaultLabelBase is the label location of a lone edge, as a fraction of
// the connector length
const DefaultLabelBase = 0.5

// Observer receives per-pass statistics
type Observer interface {
	ObserveRouterPass(d time.Duration, rendered, unresolved int)
}

// Input is everything one pass reads
type Input struct {
	Layout    *containment.Layout
	Relations []*model.Relation
	Filters   Filters
}

// Result is the output of one pass
type Result struct {
	Edges []Edge `json:"edges"`
	// Unresolved lists relations dropped for a missing endpoint
	Unresolved []string `json:"unresolved,omitempty"`
}

// Router runs passes. It keeps no state between passes.
type Router struct {
	labelBase float64
	observer  Observer
	logger    logging.Logger
}

// Option configures a Router
type Option func(*Router)

// WithLabelBase sets the label location of a lone edge
func WithLabelBase(base float64) Option {
	return func(r *Router) { r.labelBase = base }
}

// WithObserver reports pass statistics to o
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = logging.OrNop(l).With(logging.Component("router")) }
}

// New creates a router
func New(opts ...Option) *Router {
	r := &Router{
		labelBase: DefaultLabelBase,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// shape is an endpoint's resolved drawing geometry
type shape struct {
	key   string // asset or collapsed group ID; parallel edges share keys
	rect  geom.Rect
	real  geom.Rect
	group string
}

func (r *Router) resolve(l *containment.Layout, assetID string) (shape, bool) {
	real, ok := l.AssetRect(assetID)
	if !ok {
		return shape{}, false
	}
	if gid, hidden := l.CollapsedGroupOf(assetID); hidden {
		if gr, ok := l.GroupRect(gid); ok {
			return shape{key: "group:" + gid, rect: gr, real: real, group: gid}, true
		}
	}
	return shape{key: "asset:" + assetID, rect: real, real: real}, true
}

type candidate struct {
	rel      *model.Relation
	from, to shape
}

// Route runs one full pass
func (r *Router) Route(in Input) Result {
	start := time.Now()
	res := Result{Edges: make([]Edge, 0, len(in.Relations))}

	// 1. Drop relations whose endpoints cannot be resolved.
	cands := make([]candidate, 0, len(in.Relations))
	for _, rel := range in.Relations {
		from, okFrom := r.resolve(in.Layout, rel.From)
		to, okTo := r.resolve(in.Layout, rel.To)
		if !okFrom || !okTo {
			missing := rel.From
			if okFrom {
				missing = rel.To
			}
			r.logger.Warn("skipping edge", logging.RelationID(rel.ID), logging.Error(model.UnresolvedEndpointError(rel.ID, missing)))
			res.Unresolved = append(res.Unresolved, rel.ID)
			continue
		}
		if from.group != "" && from.group == to.group {
			// Both ends hidden in the same collapsed group: nothing to draw.
			continue
		}
		cands = append(cands, candidate{rel: rel, from: from, to: to})
	}

	// 2. Asserted before inferred, original order otherwise.
	slices.SortStableFunc(cands, func(a, b candidate) int {
		switch {
		case a.rel.Asserted == b.rel.Asserted:
			return 0
		case a.rel.Asserted:
			return -1
		default:
			return 1
		}
	})

	// 3-4. Visibility and anchors.
	keys := make([]string, 0, len(cands))
	for _, c := range cands {
		style, ok := visibility(c.rel, in.Filters)
		if !ok {
			continue
		}
		src, dst := anchors(c.from, c.to)
		e := Edge{
			ID:            c.rel.ID,
			Type:          c.rel.Type,
			Label:         c.rel.Label,
			Asserted:      c.rel.Asserted,
			Style:         style,
			Source:        Endpoint{AssetID: c.rel.From, Anchor: src, ViaGroup: c.from.group},
			Target:        Endpoint{AssetID: c.rel.To, Anchor: dst, ViaGroup: c.to.group},
			LabelLocation: r.labelBase,
		}
		// 6. Bindings.
		if c.rel.Deleting {
			e.Busy = true
			e.Bindings = []Binding{}
		} else {
			e.Bindings = slices.Clone(interactive)
		}
		res.Edges = append(res.Edges, e)
		keys = append(keys, pairKey(c.from.key, c.to.key))
	}

	// 5. Spread labels of edges sharing an unordered endpoint pair.
	r.spreadLabels(res.Edges, keys)

	if r.observer != nil {
		r.observer.ObserveRouterPass(time.Since(start), len(res.Edges), len(res.Unresolved))
	}
	r.logger.Debug("router pass", logging.Count(len(res.Edges)), logging.Int("unresolved", len(res.Unresolved)))
	return res
}

// visibility applies the render policy:
// visible && (asserted || showInferred) && (!hidden || showHidden)
func visibility(rel *model.Relation, f Filters) (Style, bool) {
	if !rel.Visible {
		return "", false
	}
	if !rel.Asserted && !f.ShowInferred {
		return "", false
	}
	if rel.Hidden && !f.ShowHidden {
		return "", false
	}
	switch {
	case rel.Hidden:
		return StyleHidden, true
	case rel.Asserted:
		return StyleAsserted, true
	default:
		return StyleInferred, true
	}
}

// anchors places both ends. An end hidden in a collapsed group sits where
// the line from the real member toward the other end crosses the group
// boundary.
func anchors(from, to shape) (geom.Anchor, geom.Anchor) {
	if from.group == "" && to.group == "" {
		return geom.AnchorPair(from.rect, to.rect)
	}
	return endAnchor(from, to.rect.Center()), endAnchor(to, from.rect.Center())
}

func endAnchor(s shape, toward geom.Point) geom.Anchor {
	if s.group != "" {
		return geom.BoundaryCrossing(s.rect, s.real.Center(), toward)
	}
	side := geom.FacingSide(s.rect, toward)
	return geom.Anchor{Point: geom.SideMidpoint(s.rect, side), Side: side}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// LabelLocations returns the label positions for k edges sharing a pair:
// base for a lone edge, otherwise base - spacing*k/3 + spacing*i for
// i = 1..k with spacing = 1/(2k).
func LabelLocations(base float64, k int) []float64 {
	if k <= 0 {
		return nil
	}
	if k == 1 {
		return []float64{base}
	}
	spacing := 1 / (2 * float64(k))
	out := make([]float64, k)
	for i := 1; i <= k; i++ {
		out[i-1] = base - (spacing*float64(k))/3 + spacing*float64(i)
	}
	return out
}

func (r *Router) spreadLabels(edges []Edge, keys []string) {
	members := make(map[string][]int)
	order := make([]string, 0)
	for i, k := range keys {
		if _, seen := members[k]; !seen {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}
	for _, k := range order {
		idx := members[k]
		if len(idx) < 2 {
			continue
		}
		locs := LabelLocations(r.labelBase, len(idx))
		for n, i := range idx {
			edges[i].LabelLocation = locs[n]
		}
	}
}

package viewport

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
)

func near(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestCoordinateConversion(t *testing.T) {
	v := New(DefaultConfig(), nil)
	v.zoom = 2
	v.origin = geom.Point{X: 10, Y: 20}

	tests := []struct {
		model  geom.Point
		screen geom.Point
	}{
		{geom.Point{X: 10, Y: 20}, geom.Point{}},
		{geom.Point{X: 30, Y: 60}, geom.Point{X: 10, Y: 20}},
		{geom.Point{X: 0, Y: 0}, geom.Point{X: -5, Y: -10}},
	}
	for _, tt := range tests {
		if got := v.ToScreen(tt.model); !near(got, tt.screen) {
			t.Errorf("ToScreen(%v) = %v, want %v", tt.model, got, tt.screen)
		}
		if got := v.ToModel(tt.screen); !near(got, tt.model) {
			t.Errorf("ToModel(%v) = %v, want %v", tt.screen, got, tt.model)
		}
		tr := v.Transform()
		if got := tr.ToModel(tr.ToScreen(tt.model)); !near(got, tt.model) {
			t.Errorf("Transform round trip of %v = %v", tt.model, got)
		}
	}
}

func TestPanClampsToBoundary(t *testing.T) {
	cfg := DefaultConfig()
	v := New(cfg, nil)

	v.Pan(geom.Point{X: 100, Y: -50})
	if got := v.Origin(); got != (geom.Point{X: -100, Y: 50}) {
		t.Fatalf("Origin() = %v, want {-100 50}", got)
	}

	v.Pan(geom.Point{X: 1e6, Y: 1e6})
	o := v.ToScreen(geom.Point{})
	if o.X != cfg.Width+cfg.BoundaryMargin || o.Y != cfg.Height+cfg.BoundaryMargin {
		t.Errorf("origin on screen = %v, want clamped to far edge", o)
	}

	v.Pan(geom.Point{X: -1e7, Y: -1e7})
	o = v.ToScreen(geom.Point{})
	if o.X != -cfg.BoundaryMargin || o.Y != -cfg.BoundaryMargin {
		t.Errorf("origin on screen = %v, want clamped to -margin", o)
	}
}

func TestZoomKeepsCentreFixed(t *testing.T) {
	v := New(DefaultConfig(), nil)
	center := geom.Point{X: 640, Y: 400}
	before := v.ToModel(center)

	v.ZoomBy(2)
	if v.Zoom() != 2 {
		t.Fatalf("Zoom() = %v, want 2", v.Zoom())
	}
	if after := v.ToModel(center); !near(before, after) {
		t.Errorf("centre moved from %v to %v", before, after)
	}

	v.ZoomBy(100)
	if v.Zoom() != 4 {
		t.Errorf("Zoom() = %v, want clamped to 4", v.Zoom())
	}
	v.ZoomBy(-1)
	if v.Zoom() != 4 {
		t.Errorf("negative factor changed zoom to %v", v.Zoom())
	}
	v.ZoomBy(1e-6)
	if v.Zoom() != 0.25 {
		t.Errorf("Zoom() = %v, want clamped to 0.25", v.Zoom())
	}
}

func TestRecenterOnEntities(t *testing.T) {
	v := New(DefaultConfig(), nil)

	got := v.RecenterOnEntities([]model.Placement{
		{ID: "b", Position: geom.Point{X: 100, Y: 100}},
		{ID: "a", Position: geom.Point{X: 0, Y: 0}},
	})
	want := []model.Placement{
		{ID: "a", Position: geom.Point{X: 590, Y: 350}},
		{ID: "b", Position: geom.Point{X: 690, Y: 450}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d relocations, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !near(got[i].Position, want[i].Position) {
			t.Errorf("relocation %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if again := v.RecenterOnEntities(want); again != nil {
		t.Errorf("already centred set produced %d relocations", len(again))
	}
	if none := v.RecenterOnEntities(nil); none != nil {
		t.Error("empty input should produce no relocations")
	}
}

func TestSuppressRedraw(t *testing.T) {
	v := New(DefaultConfig(), nil)
	v.SetSuppressRedraw(true)
	if !v.Transform().SuppressRedraw {
		t.Error("Transform() should carry the suppress flag")
	}
	v.SetSuppressRedraw(false)
	if v.SuppressRedraw() {
		t.Error("flag not released")
	}
}

// TestViewBoundaryProperty checks that no sequence of pans and zooms moves
// the diagram origin outside the boundary margin.
func TestViewBoundaryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cfg := DefaultConfig()
	properties.Property("origin stays inside view boundary", prop.ForAll(
		func(dxs, dys []float64, factor float64) bool {
			v := New(cfg, nil)
			for i := range dxs {
				dy := 0.0
				if i < len(dys) {
					dy = dys[i]
				}
				v.Pan(geom.Point{X: dxs[i], Y: dy})
				if i%3 == 0 {
					v.ZoomBy(factor)
				}
			}
			o := v.ToScreen(geom.Point{})
			const eps = 1e-6
			return o.X >= -cfg.BoundaryMargin-eps && o.X <= cfg.Width+cfg.BoundaryMargin+eps &&
				o.Y >= -cfg.BoundaryMargin-eps && o.Y <= cfg.Height+cfg.BoundaryMargin+eps
		},
		gen.SliceOf(gen.Float64Range(-5000, 5000)),
		gen.SliceOf(gen.Float64Range(-5000, 5000)),
		gen.Float64Range(0.1, 10),
	))

	properties.TestingRun(t)
}

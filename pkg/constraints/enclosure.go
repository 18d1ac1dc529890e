package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Geometry computes rendered shapes; containment.Manager implements it
type Geometry interface {
	AssetBounds(a *model.Asset) geom.Rect
	ExpandedBounds(g *model.Group, r store.Reader) geom.Rect
}

// EnclosureConstraint checks that every expanded group's rendered
// rectangle encloses the rectangles of its members
type EnclosureConstraint struct {
	Geometry Geometry
}

// Name returns the constraint name
func (EnclosureConstraint) Name() string { return "Enclosure" }

// Validate checks expanded group geometry
func (c EnclosureConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	if c.Geometry == nil {
		return nil, fmt.Errorf("enclosure constraint has no geometry")
	}
	var violations []Violation
	for _, g := range diagram.Groups() {
		if !g.Expanded {
			continue
		}
		bounds := c.Geometry.ExpandedBounds(g, diagram)
		for _, id := range g.Members {
			a, ok := diagram.Asset(id)
			if !ok {
				continue
			}
			if rect := c.Geometry.AssetBounds(a); !bounds.ContainsRect(rect) {
				violations = append(violations, Violation{
					Type:       EnclosureViolation,
					Severity:   Error,
					Kind:       model.KindGroup,
					EntityID:   g.ID,
					Constraint: c.Name(),
					Message:    fmt.Sprintf("Group %s does not enclose member %s", g.ID, id),
					Details:    map[string]any{"asset": id, "group": bounds, "member": rect},
				})
			}
		}
	}
	return violations, nil
}

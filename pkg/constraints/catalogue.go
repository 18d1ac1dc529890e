package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// CatalogueConstraint checks asserted relations against the relation-type
// catalogue. Inferred relations are the server's business and are skipped.
type CatalogueConstraint struct {
	Catalogue *schema.Catalogue
}

// Name returns the constraint name
func (CatalogueConstraint) Name() string { return "Catalogue" }

// Validate reports relation types the catalogue does not permit between
// their endpoint asset types
func (c CatalogueConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	if c.Catalogue == nil {
		return nil, fmt.Errorf("catalogue constraint has no catalogue")
	}
	var violations []Violation
	for _, r := range diagram.Relations() {
		if !r.Asserted {
			continue
		}
		from, okFrom := diagram.Asset(r.From)
		to, okTo := diagram.Asset(r.To)
		if !okFrom || !okTo {
			continue
		}
		if c.Catalogue.Permits(r.Type, from.Type, to.Type) {
			continue
		}
		violations = append(violations, Violation{
			Type:       ForbiddenRelation,
			Severity:   Warning,
			Kind:       model.KindRelation,
			EntityID:   r.ID,
			Constraint: c.Name(),
			Message:    fmt.Sprintf("Relation %s: %s cannot connect %s to %s", r.ID, r.Type, from.Type, to.Type),
			Details:    map[string]any{"type": r.Type, "from": from.Type, "to": to.Type},
		})
	}
	return violations, nil
}

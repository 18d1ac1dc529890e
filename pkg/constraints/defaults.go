package constraints

import "github.com/dd0wney/cluso-canvas/pkg/schema"

// Invariants returns the validator the engine checks its store with: the
// structural invariants, the catalogue when given, and advisories
func Invariants(geometry Geometry, catalogue *schema.Catalogue) *Validator {
	v := NewValidator(
		MembershipConstraint{},
		EndpointConstraint{},
		EnclosureConstraint{Geometry: geometry},
	)
	if catalogue != nil {
		v.Add(CatalogueConstraint{Catalogue: catalogue})
	}
	v.Add(Advisories()...)
	return v
}

// Advisories are warnings that never make a diagram invalid
func Advisories() []Constraint {
	return []Constraint{
		&UniqueNameConstraint{Scope: ScopeGroup},
		&CardinalityConstraint{AssetType: schema.TypeProcess, RelationType: "runs-on", Max: 1, Severity: Warning},
	}
}

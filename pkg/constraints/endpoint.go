package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// EndpointConstraint reports relations whose endpoints are missing. The
// router skips such relations, so they are warnings rather than errors.
type EndpointConstraint struct{}

// Name returns the constraint name
func (EndpointConstraint) Name() string { return "Endpoint" }

// Validate checks that both ends of every relation resolve
func (c EndpointConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	var violations []Violation
	for _, r := range diagram.Relations() {
		for _, end := range []string{r.From, r.To} {
			if _, ok := diagram.Asset(end); ok {
				continue
			}
			violations = append(violations, Violation{
				Type:       DanglingEndpoint,
				Severity:   Warning,
				Kind:       model.KindRelation,
				EntityID:   r.ID,
				Constraint: c.Name(),
				Message:    fmt.Sprintf("Relation %s references missing asset %s", r.ID, end),
				Details:    map[string]any{"asset": end},
			})
		}
	}
	return violations, nil
}

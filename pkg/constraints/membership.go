package constraints

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// MembershipConstraint checks that every asset is listed by at most one
// group, that an asset's GroupID names the group listing it, and that
// group member lists reference existing assets
type MembershipConstraint struct{}

// Name returns the constraint name
func (MembershipConstraint) Name() string { return "Membership" }

// Validate checks group member lists against asset group pointers
func (c MembershipConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	var violations []Violation
	listedBy := make(map[string][]string)

	for _, g := range diagram.Groups() {
		for _, id := range g.Members {
			listedBy[id] = append(listedBy[id], g.ID)
			if _, ok := diagram.Asset(id); !ok {
				violations = append(violations, Violation{
					Type:       MembershipViolation,
					Severity:   Error,
					Kind:       model.KindGroup,
					EntityID:   g.ID,
					Constraint: c.Name(),
					Message:    fmt.Sprintf("Group %s lists missing asset %s", g.ID, id),
					Details:    map[string]any{"asset": id},
				})
			}
		}
	}

	for _, a := range diagram.Assets() {
		groups := listedBy[a.ID]
		switch {
		case len(groups) > 1:
			slices.Sort(groups)
			violations = append(violations, Violation{
				Type:       MembershipViolation,
				Severity:   Error,
				Kind:       model.KindAsset,
				EntityID:   a.ID,
				Constraint: c.Name(),
				Message:    fmt.Sprintf("Asset %s is listed by %d groups", a.ID, len(groups)),
				Details:    map[string]any{"groups": groups},
			})
		case len(groups) == 1 && a.GroupID != groups[0]:
			violations = append(violations, c.mismatch(a, groups[0]))
		case len(groups) == 0 && a.GroupID != "":
			violations = append(violations, c.mismatch(a, ""))
		}
	}
	return violations, nil
}

func (c MembershipConstraint) mismatch(a *model.Asset, listedIn string) Violation {
	return Violation{
		Type:       MembershipViolation,
		Severity:   Error,
		Kind:       model.KindAsset,
		EntityID:   a.ID,
		Constraint: c.Name(),
		Message:    fmt.Sprintf("Asset %s points at group %q but is listed in %q", a.ID, a.GroupID, listedIn),
		Details:    map[string]any{"groupId": a.GroupID, "listedIn": listedIn},
	}
}

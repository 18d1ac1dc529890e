package constraints

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// UniqueScope defines the scope of uniqueness checking
type UniqueScope int

const (
	// ScopeGlobal means names must be unique across the whole diagram
	ScopeGlobal UniqueScope = iota
	// ScopeGroup means names must be unique among the members of a group;
	// ungrouped assets form one scope
	ScopeGroup
)

func (s UniqueScope) String() string {
	switch s {
	case ScopeGlobal:
		return "Global"
	case ScopeGroup:
		return "Group"
	default:
		return "Unknown"
	}
}

// UniqueNameConstraint reports assets sharing a display name, compared
// case-insensitively. Unnamed assets are ignored.
type UniqueNameConstraint struct {
	// AssetType optionally restricts the check to one asset type
	AssetType string
	Scope     UniqueScope
}

// Name returns a human-readable name for this constraint
func (c *UniqueNameConstraint) Name() string {
	if c.AssetType != "" {
		return fmt.Sprintf("UniqueName(%s,%s)", c.AssetType, c.Scope)
	}
	return fmt.Sprintf("UniqueName(%s)", c.Scope)
}

// Validate groups assets by scope and name and reports every duplicate
func (c *UniqueNameConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	seen := make(map[string][]string)
	for _, a := range diagram.Assets() {
		if a.Name == "" || (c.AssetType != "" && a.Type != c.AssetType) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(a.Name))
		if c.Scope == ScopeGroup {
			g, _ := diagram.GroupOf(a.ID)
			key = g + "\x00" + key
		}
		seen[key] = append(seen[key], a.ID)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var violations []Violation
	for _, key := range keys {
		ids := seen[key]
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids[1:] {
			violations = append(violations, Violation{
				Type:       UniquenessViolation,
				Severity:   Warning,
				Kind:       model.KindAsset,
				EntityID:   id,
				Constraint: c.Name(),
				Message:    fmt.Sprintf("Asset %s duplicates the name of asset %s", id, ids[0]),
				Details:    map[string]any{"first": ids[0]},
			})
		}
	}
	return violations, nil
}

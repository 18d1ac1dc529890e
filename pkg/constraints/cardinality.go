package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Direction specifies relation direction for cardinality constraints
type Direction int

const (
	Outgoing Direction = iota // Relations from this asset
	Incoming                  // Relations to this asset
	Any                       // Relations in either direction
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "Outgoing"
	case Incoming:
		return "Incoming"
	case Any:
		return "Any"
	default:
		return "Unknown"
	}
}

// CardinalityConstraint validates how many asserted relations an asset has.
// A Process that runs on at most one host is
// {AssetType: "Process", RelationType: "runs-on", Direction: Outgoing, Max: 1}.
type CardinalityConstraint struct {
	AssetType    string    // Asset type to apply constraint to
	RelationType string    // Type of relation (empty = any type)
	Direction    Direction // Direction of relations to count
	Min          int       // Minimum number of relations (0 = optional)
	Max          int       // Maximum number of relations (0 = unlimited)
	Severity     Severity
}

// Name returns the constraint name
func (cc *CardinalityConstraint) Name() string {
	relType := cc.RelationType
	if relType == "" {
		relType = "*"
	}
	return fmt.Sprintf("Cardinality(%s,%s,%s,[%d,%d])",
		cc.AssetType, relType, cc.Direction, cc.Min, cc.Max)
}

// Validate checks the cardinality constraint against all assets of the type
func (cc *CardinalityConstraint) Validate(diagram store.Reader) ([]Violation, error) {
	counts := make(map[string]int)
	for _, r := range diagram.Relations() {
		if !r.Asserted || (cc.RelationType != "" && r.Type != cc.RelationType) {
			continue
		}
		if cc.Direction == Outgoing || cc.Direction == Any {
			counts[r.From]++
		}
		if cc.Direction == Incoming || cc.Direction == Any {
			counts[r.To]++
		}
	}

	var violations []Violation
	for _, a := range diagram.Assets() {
		if a.Type != cc.AssetType {
			continue
		}
		n := counts[a.ID]
		if cc.Min > 0 && n < cc.Min {
			violations = append(violations, cc.violation(a, n, "minimum", cc.Min))
		}
		if cc.Max > 0 && n > cc.Max {
			violations = append(violations, cc.violation(a, n, "maximum", cc.Max))
		}
	}
	return violations, nil
}

func (cc *CardinalityConstraint) violation(a *model.Asset, n int, bound string, limit int) Violation {
	return Violation{
		Type:       CardinalityViolation,
		Severity:   cc.Severity,
		Kind:       model.KindAsset,
		EntityID:   a.ID,
		Constraint: cc.Name(),
		Message: fmt.Sprintf("Asset %s has %d %s relation(s) of type '%s', %s is %d",
			a.ID, n, cc.Direction, cc.RelationType, bound, limit),
		Details: map[string]any{
			"asset_type":    cc.AssetType,
			"relation_type": cc.RelationType,
			"direction":     cc.Direction.String(),
			"count":         n,
			bound:           limit,
		},
	}
}

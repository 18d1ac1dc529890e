package constraints

import (
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// Severity indicates the importance of a violation
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ViolationType categorizes the type of constraint violation
type ViolationType int

const (
	MembershipViolation ViolationType = iota
	DanglingEndpoint
	EnclosureViolation
	CardinalityViolation
	ForbiddenRelation
	UniquenessViolation
)

func (vt ViolationType) String() string {
	switch vt {
	case MembershipViolation:
		return "MembershipViolation"
	case DanglingEndpoint:
		return "DanglingEndpoint"
	case EnclosureViolation:
		return "EnclosureViolation"
	case CardinalityViolation:
		return "CardinalityViolation"
	case ForbiddenRelation:
		return "ForbiddenRelation"
	case UniquenessViolation:
		return "UniquenessViolation"
	default:
		return "Unknown"
	}
}

// Violation represents a constraint violation
type Violation struct {
	Type       ViolationType
	Severity   Severity
	Kind       model.EntityKind
	EntityID   string
	Constraint string
	Message    string
	Details    map[string]any
}

// Constraint is the interface that all constraint types must implement.
// It reads the diagram through store.Reader so it runs equally against the
// live store or a frozen snapshot.
type Constraint interface {
	// Validate checks the constraint against the diagram
	// Returns a list of violations (empty if valid)
	Validate(diagram store.Reader) ([]Violation, error)

	// Name returns a human-readable name for the constraint
	Name() string
}

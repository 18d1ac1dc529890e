package constraints

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// ValidationResult is the outcome of one pass over a diagram
type ValidationResult struct {
	// Valid is false when any violation has Error severity
	Valid      bool
	Violations []Violation
	CheckedAt  time.Time
}

func (vr *ValidationResult) filter(keep func(Violation) bool) []Violation {
	var out []Violation
	for _, v := range vr.Violations {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// GetViolationsByType returns violations of one type
func (vr *ValidationResult) GetViolationsByType(t ViolationType) []Violation {
	return vr.filter(func(v Violation) bool { return v.Type == t })
}

// ForEntity returns the violations raised against one asset, group or
// relation
func (vr *ValidationResult) ForEntity(id string) []Violation {
	return vr.filter(func(v Violation) bool { return v.EntityID == id })
}

// Errors returns the violations that make the diagram invalid
func (vr *ValidationResult) Errors() []Violation {
	return vr.filter(func(v Violation) bool { return v.Severity == Error })
}

// Warnings returns violations that leave the diagram valid
func (vr *ValidationResult) Warnings() []Violation {
	return vr.filter(func(v Violation) bool { return v.Severity == Warning })
}

// Summary is a one-line count of errors and warnings
func (vr *ValidationResult) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(vr.Errors()), len(vr.Warnings()))
}

// Validator runs an ordered set of constraints over a diagram
type Validator struct {
	constraints []Constraint
}

// NewValidator creates a validator running cs in order
func NewValidator(cs ...Constraint) *Validator {
	return &Validator{constraints: cs}
}

// Add appends constraints
func (v *Validator) Add(cs ...Constraint) {
	v.constraints = append(v.constraints, cs...)
}

// Len returns the number of constraints
func (v *Validator) Len() int { return len(v.constraints) }

// Validate runs every constraint. A constraint that cannot run does not
// stop the others; all such failures are joined into the returned error
// alongside the partial result.
func (v *Validator) Validate(diagram store.Reader) (*ValidationResult, error) {
	result := &ValidationResult{Valid: true, CheckedAt: time.Now()}

	var errs []error
	for _, c := range v.constraints {
		violations, err := c.Validate(diagram)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		for _, violation := range violations {
			if violation.Severity == Error {
				result.Valid = false
			}
		}
		result.Violations = append(result.Violations, violations...)
	}
	return result, errors.Join(errs...)
}

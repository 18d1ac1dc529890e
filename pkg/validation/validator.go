package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNameLength = 128
	MaxTypeLength = 64
	MaxBatchSize  = 1000
	MinBatchSize  = 1

	typeNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

func init() {
	validate = validator.New()
	// typename: asset and relation type identifiers
	validate.RegisterValidation("typename", func(fl validator.FieldLevel) bool {
		return typeNamePattern.MatchString(fl.Field().String())
	})
	// finite: coordinates and sizes must not be NaN or ±Inf
	validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// Struct validates v against its `validate` struct tags and returns the first
// failure in a user-friendly form.
func Struct(v any) error {
	if v == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateBatchSize validates the size of a batch request
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("batch size must be at least %d, got %d", MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidateTypeName validates an asset or relation type identifier
func ValidateTypeName(name string) error {
	if name == "" {
		return errors.New("type name cannot be empty")
	}
	if len(name) > MaxTypeLength {
		return fmt.Errorf("type name '%s' exceeds maximum length of %d characters", name, MaxTypeLength)
	}
	if !typeNamePattern.MatchString(name) {
		return fmt.Errorf("type name '%s' is invalid (must start with a letter, followed by letters, digits, '_' or '-')", name)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "typename":
			return fmt.Errorf("%s: %q is not a valid type name", field, e.Value())
		case "finite":
			return fmt.Errorf("%s: must be a finite number", field)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

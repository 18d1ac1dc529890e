package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.Required("Catalogue", "")
	if !cv.HasErrors() {
		t.Fatal("expected error for empty field")
	}
	if !strings.Contains(cv.Errors()[0].Error(), "Config.Catalogue") {
		t.Errorf("error = %v", cv.Errors()[0])
	}

	cv = NewConfigValidator("Config")
	cv.Required("Catalogue", "catalogue.yaml")
	if cv.HasErrors() {
		t.Errorf("unexpected error: %v", cv.Validate())
	}
}

func TestConfigValidator_Floats(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(*ConfigValidator)
		wantErr bool
	}{
		{"positive ok", func(cv *ConfigValidator) { cv.PositiveFloat("Zoom", 1) }, false},
		{"positive zero", func(cv *ConfigValidator) { cv.PositiveFloat("Zoom", 0) }, true},
		{"non-negative zero", func(cv *ConfigValidator) { cv.NonNegativeFloat("Margin", 0) }, false},
		{"non-negative negative", func(cv *ConfigValidator) { cv.NonNegativeFloat("Margin", -1) }, true},
		{"range inside", func(cv *ConfigValidator) { cv.RangeFloat("Base", 0.5, 0, 1) }, false},
		{"range outside", func(cv *ConfigValidator) { cv.RangeFloat("Base", 1.5, 0, 1) }, true},
		{"less or equal ok", func(cv *ConfigValidator) { cv.LessOrEqual("MinZoom", 0.5, "MaxZoom", 2) }, false},
		{"less or equal fails", func(cv *ConfigValidator) { cv.LessOrEqual("MinZoom", 3, "MaxZoom", 2) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("Viewport")
			tt.apply(cv)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%v)", cv.HasErrors(), tt.wantErr, cv.Validate())
			}
		})
	}
}

func TestConfigValidator_OneOfCustomWhen(t *testing.T) {
	cv := NewConfigValidator("Logging").
		OneOf("Level", "loud", []string{"debug", "info"}).
		Custom("Path", func() error { return errors.New("missing") }).
		When(false, func(cv *ConfigValidator) { cv.Required("Skipped", "") })

	if len(cv.Errors()) != 2 {
		t.Fatalf("errors = %v", cv.Errors())
	}
	err := cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Validate() = %v", err)
	}
}

func TestDefaultOrAndClamp(t *testing.T) {
	if DefaultOr(0.0, 0.5) != 0.5 {
		t.Error("DefaultOr zero should return default")
	}
	if DefaultOr("set", "default") != "set" {
		t.Error("DefaultOr should keep non-zero value")
	}
	if ClampFloat(5, 0, 2) != 2 || ClampFloat(-1, 0, 2) != 0 || ClampFloat(1, 0, 2) != 1 {
		t.Error("ClampFloat out of range")
	}
}

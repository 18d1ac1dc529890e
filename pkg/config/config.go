// Package config loads the engine configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-canvas/pkg/containment"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/validation"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

// Environment variables read by Load, highest priority
const (
	EnvLogLevel  = "CANVAS_LOG_LEVEL"
	EnvCatalogue = "CANVAS_CATALOGUE"
	EnvSeed      = "CANVAS_SEED"
)

// Config is the engine configuration
type Config struct {
	Viewport viewport.Config    `yaml:"viewport"`
	Shapes   containment.Shapes `yaml:"shapes"`
	Router   RouterConfig       `yaml:"router"`
	Filters  router.Filters     `yaml:"filters"`
	Logging  LoggingConfig      `yaml:"logging"`
	// Catalogue is the path of a relation-type catalogue; empty means the
	// built-in catalogue
	Catalogue string `yaml:"catalogue"`
	// Seed is the path of a diagram seed for the in-memory model service
	Seed string `yaml:"seed"`
	// Latency delays every in-memory model service call
	Latency Duration `yaml:"latency"`
}

// RouterConfig tunes edge labelling
type RouterConfig struct {
	LabelBase float64 `yaml:"labelBase"`
}

// LoggingConfig selects the log level and output
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File receives the JSON log; empty means stderr
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Viewport: viewport.DefaultConfig(),
		Shapes:   containment.DefaultShapes(),
		Router:   RouterConfig{LabelBase: router.DefaultLabelBase},
		Filters:  router.Filters{ShowInferred: true},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the config file at path. An empty path yields the defaults
// with environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv(EnvCatalogue); v != "" {
		c.Catalogue = v
	}
	if v := getenv(EnvSeed); v != "" {
		c.Seed = v
	}
}

// Validate checks every section and reports all problems at once
func (c Config) Validate() error {
	return validation.NewConfigValidator("canvas").
		PositiveFloat("viewport.width", c.Viewport.Width).
		PositiveFloat("viewport.height", c.Viewport.Height).
		PositiveFloat("viewport.minZoom", c.Viewport.MinZoom).
		LessOrEqual("viewport.minZoom", c.Viewport.MinZoom, "viewport.maxZoom", c.Viewport.MaxZoom).
		NonNegativeFloat("viewport.boundaryMargin", c.Viewport.BoundaryMargin).
		PositiveFloat("shapes.asset.width", c.Shapes.Asset.Width).
		PositiveFloat("shapes.asset.height", c.Shapes.Asset.Height).
		PositiveFloat("shapes.collapsedGroup.width", c.Shapes.CollapsedGroup.Width).
		PositiveFloat("shapes.collapsedGroup.height", c.Shapes.CollapsedGroup.Height).
		NonNegativeFloat("shapes.groupPadding", c.Shapes.GroupPadding).
		RangeFloat("router.labelBase", c.Router.LabelBase, 0, 1).
		OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		Custom("latency", func() error {
			if c.Latency < 0 {
				return fmt.Errorf("must not be negative")
			}
			return nil
		}).
		Validate()
}

// LogLevel returns the configured level
func (c Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

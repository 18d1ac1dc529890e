package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/router"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, router.DefaultLabelBase, cfg.Router.LabelBase)
	assert.True(t, cfg.Filters.ShowInferred)
	assert.False(t, cfg.Filters.ShowHidden)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
viewport:
  width: 800
  height: 600
  minZoom: 0.5
  maxZoom: 2
  boundaryMargin: 50
router:
  labelBase: 0.4
filters:
  showHidden: true
latency: 150ms
logging:
  level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, 800.0, cfg.Viewport.Width)
	assert.Equal(t, 0.4, cfg.Router.LabelBase)
	assert.True(t, cfg.Filters.ShowHidden)
	assert.Equal(t, 150*time.Millisecond, cfg.Latency.Std())
	assert.Equal(t, logging.DebugLevel, cfg.LogLevel())
	assert.Equal(t, Default().Shapes, cfg.Shapes, "omitted sections keep defaults")
}

func TestParseReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`
viewport: {width: 0, height: 600, minZoom: 3, maxZoom: 2}
router: {labelBase: 1.5}
logging: {level: loud}
`))
	require.Error(t, err)
	for _, field := range []string{"viewport.width", "viewport.minZoom", "router.labelBase", "logging.level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("latency: soon\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "line 1"))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvSeed, "/tmp/seed.yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/seed.yaml", cfg.Seed)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalogue: ./catalogue.yaml\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./catalogue.yaml", cfg.Catalogue)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "canvas.log")

	logger, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Info("engine started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine started")
}

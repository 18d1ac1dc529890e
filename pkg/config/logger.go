package config

import (
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

// NewLogger builds the JSON logger the config asks for. The returned closer
// releases the log file, if any.
func (c Config) NewLogger() (logging.Logger, io.Closer, error) {
	if c.Logging.File == "" {
		return logging.NewJSONLogger(os.Stderr, c.LogLevel()), nopCloser{}, nil
	}
	f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logging.NewJSONLogger(f, c.LogLevel()), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

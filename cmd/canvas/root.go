package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-canvas/pkg/config"
	"github.com/dd0wney/cluso-canvas/pkg/engine"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
	"github.com/dd0wney/cluso-canvas/pkg/metrics"
	"github.com/dd0wney/cluso-canvas/pkg/modelservice"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
)

var version = "0.3.0"

var (
	configPath    string
	seedPath      string
	cataloguePath string
)

var rootCmd = &cobra.Command{
	Use:          "canvas",
	Short:        "canvas - diagram state engine host",
	Long:         "Drive the diagram state engine against an in-memory model service.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "seed diagram (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cataloguePath, "catalogue", "", "relation-type catalogue (overrides config)")

	rootCmd.AddCommand(
		tuiCmd(),
		queryCmd(),
		checkCmd(),
		serveCmd(),
	)
}

// session is one engine wired to a seeded in-memory model service
type session struct {
	cfg     config.Config
	engine  *engine.Engine
	service *modelservice.Memory
	logger  logging.Logger
	closer  io.Closer
}

type sessionOptions struct {
	// inline resolves model service requests synchronously
	inline bool
	// quiet drops logs unless the config names a log file
	quiet bool
}

func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if seedPath != "" {
		cfg.Seed = seedPath
	}
	if cataloguePath != "" {
		cfg.Catalogue = cataloguePath
	}

	var logger logging.Logger
	var closer io.Closer
	if opts.quiet && cfg.Logging.File == "" {
		logger, closer = logging.NewNopLogger(), nopCloser{}
	} else {
		logger, closer, err = cfg.NewLogger()
		if err != nil {
			return nil, err
		}
	}

	catalogue := schema.DefaultCatalogue()
	if cfg.Catalogue != "" {
		if catalogue, err = schema.LoadCatalogue(cfg.Catalogue); err != nil {
			closer.Close()
			return nil, err
		}
	}

	svc := modelservice.NewMemory(catalogue,
		modelservice.WithLatency(cfg.Latency.Std()),
		modelservice.WithLogger(logger),
	)
	if cfg.Seed != "" {
		d, err := modelservice.LoadSeed(cfg.Seed)
		if err != nil {
			closer.Close()
			return nil, err
		}
		if err := svc.Seed(d); err != nil {
			closer.Close()
			return nil, fmt.Errorf("failed to seed model service: %w", err)
		}
	}

	opt := engine.Options{
		Service:   svc,
		Catalogue: catalogue,
		Viewport:  cfg.Viewport,
		Shapes:    cfg.Shapes,
		LabelBase: cfg.Router.LabelBase,
		Filters:   cfg.Filters,
		Metrics:   metrics.NewRegistry(),
		Logger:    logger,
	}
	if opts.inline {
		opt.Scheduler = reconcile.InlineScheduler{Ctx: ctx}
	}
	e, err := engine.New(opt)
	if err != nil {
		closer.Close()
		return nil, err
	}
	if err := e.LoadFromService(ctx); err != nil {
		e.Close()
		closer.Close()
		return nil, err
	}
	return &session{cfg: cfg, engine: e, service: svc, logger: logger, closer: closer}, nil
}

func (s *session) Close() {
	s.engine.Close()
	s.closer.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-canvas/pkg/graphql"
	"github.com/dd0wney/cluso-canvas/pkg/health"
	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		maxDepth int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over GraphQL with Prometheus metrics",
		Example: `  canvas serve --seed examples/substation.yaml --addr :8080
  curl -s localhost:8080/graphql -d '{"query":"{ edges { id label } }"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()
			e := s.engine

			x, err := graphql.NewExecutor(e, maxDepth)
			if err != nil {
				return err
			}

			router := chi.NewRouter()
			router.Use(chimiddleware.RequestID)
			router.Use(chimiddleware.RealIP)
			router.Use(chimiddleware.Recoverer)

			router.Handle("/graphql", graphql.NewGraphQLHandler(x, e.Loop().Post, s.logger))
			router.Handle("/metrics", promhttp.HandlerFor(e.Metrics().GetPrometheusRegistry(), promhttp.HandlerOpts{}))
			hc := health.NewChecker()
			hc.RegisterCheck("event_loop", health.LoopCheck(e.Loop().Post, e.Loop().Len, 100, time.Second))
			reconcileCheck := health.ReconcileCheck(e.Loop().Post, func() health.ReconcileState {
				st := e.Status()
				return health.ReconcileState{Pending: st.Pending, Queued: st.Queued, Stale: st.Stale}
			}, 50, time.Second)
			hc.RegisterCheck("reconciliation", reconcileCheck)
			hc.RegisterReadinessCheck("reconciliation", reconcileCheck)
			router.Handle("/health", hc.HTTPHandler())
			router.Handle("/ready", hc.ReadinessHandler())

			srv := &http.Server{
				Addr:           addr,
				Handler:        router,
				ReadTimeout:    30 * time.Second,
				WriteTimeout:   30 * time.Second,
				IdleTimeout:    120 * time.Second,
				MaxHeaderBytes: 1 << 20,
			}

			loopDone := make(chan error, 1)
			go func() { loopDone <- e.Loop().Run(ctx) }()

			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						_ = e.Loop().Post(e.UpdateSystemMetrics)
					}
				}
			}()

			serveErr := make(chan error, 1)
			go func() {
				s.logger.Info("serving", logging.String("addr", addr))
				serveErr <- srv.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				s.logger.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("shutdown incomplete", logging.Error(err))
			}
			e.Loop().Close()
			if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&maxDepth, "max-depth", graphql.DefaultMaxDepth, "maximum GraphQL selection depth")
	cmd.Flags().DurationVar(&interval, "metrics-interval", 10*time.Second, "system metrics refresh interval")
	return cmd
}

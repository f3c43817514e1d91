// Package app wires every component built from SPEC_FULL.md into one
// supervised run loop: the three market-data feeds, the hourly/staleness/
// daily-reset scheduler, and the operator HTTP server, all sharing one risk
// manager, breaker, kill switch, and persistence layer.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polymarketbot/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the feed manager, scheduler, and HTTP
// server concurrently under one errgroup, returning when ctx is canceled or
// any of the three returns a fatal error.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Bool("dry_run", a.cfg.DryRun),
		slog.String("environment", a.cfg.Environment),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Feeds.Run(gctx)
	})

	g.Go(func() error {
		return deps.Scheduler.Run(gctx)
	})

	g.Go(func() error {
		return deps.Server.Run(gctx)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

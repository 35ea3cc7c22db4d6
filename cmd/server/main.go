package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/wildfire-watch-service/internal/adapter/http"
	"github.com/couchcryptid/wildfire-watch-service/internal/app"
	"github.com/couchcryptid/wildfire-watch-service/internal/config"
	"github.com/couchcryptid/wildfire-watch-service/internal/monitor"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Collections: a.Collections,
		Monitor:     a.Monitor,
		Oracle:      a.Oracle,
		Ready:       a,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.AnalyzeInterval > 0 {
		scheduler := monitor.NewScheduler(a.Monitor, cfg.AnalyzeInterval, logger)
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	// Shut the server down once a signal arrives or another goroutine fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		exitCode = 1
	}
	if err := a.Close(); err != nil {
		exitCode = 1
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}

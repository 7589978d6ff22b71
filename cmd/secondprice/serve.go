package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/SecondPrice/internal/api"
)

var servePort int

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve marketplace search over HTTP.

Endpoints:
  GET /api/scrapers/search?keyword=&platform=&limit=&sort=&sortOrder=
  GET /api/scrapers/product?platform=&url=
  GET /api/scrapers/status?keyword=&platforms=
  GET /api/health`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var opts []api.Option
	if cfg.Metrics.Enabled {
		opts = append(opts,
			api.WithMetrics(a.metrics, cfg.Metrics.Path),
			api.WithDashboard(a.metrics),
		)
	}
	srv := api.NewServer(cfg.Server, a.manager, logger, opts...)
	if err := srv.Start(); err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("start server: %w", err)
	}
	logger.Info("SecondPrice API ready",
		"addr", srv.Addr(),
		"platforms", a.manager.Platforms(),
		"platform_deadline", cfg.Server.PlatformDeadline,
	)

	<-ctx.Done()
	logger.Info("received signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Error("cleanup failed", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

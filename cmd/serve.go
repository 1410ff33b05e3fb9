package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"inventory-vault/internal/application"
	"inventory-vault/internal/display"
	apperrors "inventory-vault/internal/errors"
)

var serveAddr string

// serveCmd runs the long-lived admin process
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP API and the backup scheduler",
	Long: `Run the admin HTTP API and the daily backup scheduler.

The API exposes snapshot creation, listing, restore, legacy import upload,
import run inspection, and a health probe under /api/v1. The scheduler
takes a snapshot at the configured daily time and runs a retention pass
after each one; when catch-up is enabled and the newest snapshot is older
than a day, one backup fires at startup.

SIGINT or SIGTERM stops the scheduler and drains in-flight requests
before exiting.

Examples:
  # Serve on the configured address
  inventory-vault serve

  # Serve on a different port
  inventory-vault serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides the configured server.addr")
}

// runServe wires the server and scheduler under one cancellable context.
// A termination signal cancels the context; the errgroup then waits for
// the HTTP server to drain.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	displayService := display.NewDisplayService(&cfg.Display)

	app, err := application.NewApplication(cfg, displayService)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	app.StartupSweep(cmd.Context())

	server, err := app.Server()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownHandler := apperrors.NewGracefulShutdownHandler()
	shutdownHandler.RegisterShutdownFunc(func() error {
		cancel()
		return nil
	})
	shutdownHandler.Start()
	defer shutdownHandler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if err := app.Scheduler.Start(gctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer app.Scheduler.Stop()

	g.Go(func() error {
		return server.Serve(gctx)
	})

	displayService.Info(fmt.Sprintf("Admin API listening on %s", server.Addr()))
	if cfg.Backup.Schedule.Enabled {
		displayService.Info(fmt.Sprintf("Next scheduled backup: %s", app.Scheduler.NextRun().Format("2006-01-02 15:04:05")))
	}
	displayService.Info("Press Ctrl+C to stop.")

	return g.Wait()
}

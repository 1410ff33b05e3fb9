// Package application wires the vault subsystems into one runnable unit.
// The live store, catalog, storage target, snapshot/restore/retention
// engines, scheduler, and legacy importer are built here and share a
// single maintenance lock, so no two maintenance operations can overlap.
package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/catalog"
	"inventory-vault/internal/config"
	"inventory-vault/internal/display"
	apperrors "inventory-vault/internal/errors"
	"inventory-vault/internal/httpapi"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/migration"
	"inventory-vault/internal/store"
)

// Application holds the wired subsystems the CLI commands and the admin
// API operate on
type Application struct {
	Config  *config.Config
	Logger  *logging.Logger
	Catalog *catalog.Catalog
	Store   *store.Store
	Storage backup.StorageTarget

	Snapshots backup.SnapshotManager
	Restores  backup.RestoreManager
	Retention backup.RetentionManager
	Scheduler backup.SnapshotScheduler
	Imports   migration.ImportService

	lock  *backup.MaintenanceLock
	retry *apperrors.RetryHandler
}

// NewApplication builds the full subsystem graph from a configuration.
// The display service may be nil; long-running operations then report
// through the log only.
func NewApplication(cfg *config.Config, displayService display.DisplayService) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := logging.NewLogger(cfg.ToLoggingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	systemConfig, err := cfg.ToSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot configuration: %w", err)
	}

	cat, err := catalog.OpenWithLogger(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	liveStore, err := store.OpenWithLogger(cfg.Store, logger)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("failed to open live store: %w", err)
	}

	app, err := assemble(cfg, systemConfig, cat, liveStore, logger, displayService)
	if err != nil {
		liveStore.Close()
		cat.Close()
		return nil, err
	}

	return app, nil
}

// assemble builds the engines on top of the opened store and catalog
func assemble(
	cfg *config.Config,
	systemConfig *backup.SystemConfig,
	cat *catalog.Catalog,
	liveStore *store.Store,
	logger *logging.Logger,
	displayService display.DisplayService,
) (*Application, error) {
	storage, err := backup.NewLocalStorageTarget(&systemConfig.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage target: %w", err)
	}

	lock := backup.NewMaintenanceLock()

	snapshots, err := backup.NewSnapshotManager(systemConfig, cat, liveStore, storage, lock, logger, displayService)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot manager: %w", err)
	}

	restores, err := backup.NewRestoreManager(systemConfig, cat, cat, liveStore, storage, lock, logger, displayService)
	if err != nil {
		return nil, fmt.Errorf("failed to create restore manager: %w", err)
	}

	retention := backup.NewRetentionManager(cat, storage, logger)

	scheduler, err := backup.NewSnapshotScheduler(systemConfig, snapshots, retention, cat, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	var mapping *migration.Mapping
	if cfg.Import.MappingFile != "" {
		mapping, err = config.LoadMapping(cfg.Import.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load import mapping: %w", err)
		}
	}

	imports, err := migration.NewImportService(liveStore.DB(), cat, mapping, lock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create import service: %w", err)
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Catalog:   cat,
		Store:     liveStore,
		Storage:   storage,
		Snapshots: snapshots,
		Restores:  restores,
		Retention: retention,
		Scheduler: scheduler,
		Imports:   imports,
		lock:      lock,
		retry:     apperrors.NewDefaultRetryHandler(),
	}, nil
}

// StartupSweep reclassifies pending snapshots whose writer died. It runs
// once before a command or the server touches the catalog; a sweep
// failure is reported but never blocks startup.
func (app *Application) StartupSweep(ctx context.Context) []string {
	swept, err := app.Snapshots.RecoverStalePending(ctx)
	if err != nil {
		app.Logger.WithField("error", err.Error()).Error("Startup sweep failed")
		return nil
	}
	return swept
}

// Health reports whether the live store, the catalog, and the storage
// target are all reachable. The admin API's health endpoint calls this.
// Transient storage failures are retried with backoff before the check
// is reported as failed.
func (app *Application) Health(ctx context.Context) error {
	if err := app.Store.Ping(ctx); err != nil {
		return fmt.Errorf("live store: %w", err)
	}
	if err := app.Catalog.Ping(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	err := app.retry.Retry(ctx, func() error {
		return app.Storage.HealthCheck(ctx)
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Handler builds the admin API routes over the wired managers
func (app *Application) Handler() (http.Handler, error) {
	h, err := httpapi.NewHandler(app.Snapshots, app.Restores, app.Imports, app.Health, app.Logger)
	if err != nil {
		return nil, err
	}
	return h.Routes(), nil
}

// Server builds the admin HTTP server on the configured listen address
func (app *Application) Server() (*httpapi.Server, error) {
	handler, err := app.Handler()
	if err != nil {
		return nil, err
	}
	return httpapi.NewServer(app.Config.Server.Addr, handler, app.Logger), nil
}

// RetentionPolicy returns the policy the configuration selects
func (app *Application) RetentionPolicy() backup.RetentionPolicy {
	return backup.RetentionPolicy{
		WindowDays: app.Config.Backup.Retention.WindowDays,
		MinCount:   app.Config.Backup.Retention.MinCount,
	}
}

// Close releases the live store and catalog handles. Safe to call more
// than once.
func (app *Application) Close() error {
	var errs []error

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("live store: %w", err))
		}
	}
	if app.Catalog != nil {
		if err := app.Catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("catalog: %w", err))
		}
	}

	return errors.Join(errs...)
}

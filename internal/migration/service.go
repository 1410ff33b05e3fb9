package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/logging"
)

// ImportService orchestrates legacy imports end to end: it parses the
// payload, reconciles it against the live store, and keeps the run's
// audit record in the catalog throughout.
type ImportService interface {
	// Import runs one migration over an in-memory payload. It acquires the
	// maintenance lock for the whole run and returns an ALREADY_IN_PROGRESS
	// error when another maintenance operation holds it. On parse or apply
	// failure the returned run carries the failure detail alongside the
	// error.
	Import(ctx context.Context, payload []byte, format Format, sourceFile string) (*ImportRun, error)

	// ImportFile reads a legacy export from disk, inferring the format
	// from the file extension
	ImportFile(ctx context.Context, path string) (*ImportRun, error)

	GetRun(ctx context.Context, runID string) (*ImportRun, error)
	ListRuns(ctx context.Context, limit int) ([]*ImportRun, error)
}

// importService implements the ImportService interface
type importService struct {
	catalog    RunCatalog
	reconciler *Reconciler
	lock       *backup.MaintenanceLock
	logger     *logging.Logger
	clock      func() time.Time
}

// NewImportService creates an import service over the live store's
// database handle. A nil mapping selects the default mapping; the lock
// must be the same instance the backup and restore engines share, since
// an import writes the same tables they do.
func NewImportService(
	db *sql.DB,
	catalog RunCatalog,
	mapping *Mapping,
	lock *backup.MaintenanceLock,
	logger *logging.Logger,
) (ImportService, error) {
	if db == nil {
		return nil, NewInvalidError("live store database handle is required", nil)
	}
	if catalog == nil {
		return nil, NewInvalidError("run catalog is required", nil)
	}
	if lock == nil {
		lock = backup.NewMaintenanceLock()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &importService{
		catalog:    catalog,
		reconciler: NewReconciler(db, mapping, logger),
		lock:       lock,
		logger:     logger,
		clock:      time.Now,
	}, nil
}

// Import runs one migration over payload
func (is *importService) Import(ctx context.Context, payload []byte, format Format, sourceFile string) (*ImportRun, error) {
	if !isValidFormat(format) {
		return nil, NewUnsupportedFormatError(
			fmt.Sprintf("unsupported format %q, use json or html", format), nil)
	}

	if err := is.lock.TryAcquire("import"); err != nil {
		return nil, err
	}
	defer is.lock.Release()

	run := &ImportRun{
		ID:         GenerateRunID(),
		SourceFile: sourceFile,
		Format:     format,
		StartedAt:  is.clock().UTC(),
		Status:     RunStatusRunning,
	}
	if err := is.catalog.InsertImportRun(ctx, run); err != nil {
		return nil, err
	}

	finish := is.logger.LogOperationStart("import", map[string]interface{}{
		"run_id":      run.ID,
		"format":      string(format),
		"source_file": sourceFile,
	})

	records, parseRejects, err := parsePayload(payload, format, sourceFile)
	if err != nil {
		return is.failRun(ctx, run, err, finish)
	}

	outcome, err := is.reconciler.Reconcile(ctx, records, parseRejects)
	if err != nil {
		return is.failRun(ctx, run, err, finish)
	}

	run.Counts = outcome.Counts
	run.EntityCounts = outcome.EntityCounts
	run.Rejects = outcome.Rejects
	run.Degraded = outcome.Degraded
	run.Finish(RunStatusSucceeded, is.clock().UTC())

	if err := is.catalog.UpdateImportRun(ctx, run); err != nil {
		finish(err)
		return run, err
	}
	finish(nil)

	is.logger.LogImportFinished(run.ID,
		run.Counts.Parsed, run.Counts.Inserted, run.Counts.Updated,
		run.Counts.SkippedDuplicate, run.Counts.RejectedInvalid,
		run.FinishedAt.Sub(run.StartedAt), nil)

	if run.Degraded {
		is.logger.Warnf("Import %s applied without transactional guarantees", run.ID)
	}

	return run, nil
}

// ImportFile reads and imports a legacy export file
func (is *importService) ImportFile(ctx context.Context, path string) (*ImportRun, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, NewInvalidError(fmt.Sprintf("cannot read %s", path), err)
	}

	return is.Import(ctx, payload, format, filepath.Base(path))
}

// GetRun fetches one import run with its rejects
func (is *importService) GetRun(ctx context.Context, runID string) (*ImportRun, error) {
	return is.catalog.GetImportRun(ctx, runID)
}

// ListRuns returns import runs newest first
func (is *importService) ListRuns(ctx context.Context, limit int) ([]*ImportRun, error) {
	return is.catalog.ListImportRuns(ctx, limit)
}

// failRun stamps the terminal failure onto the run and persists it. The
// original error is returned even when the catalog update also fails.
func (is *importService) failRun(ctx context.Context, run *ImportRun, cause error, finish func(error)) (*ImportRun, error) {
	run.ErrorDetail = cause.Error()
	run.Finish(RunStatusFailed, is.clock().UTC())

	if err := is.catalog.UpdateImportRun(ctx, run); err != nil {
		is.logger.WithFields(map[string]interface{}{
			"run_id": run.ID,
			"error":  err.Error(),
		}).Error("Failed to persist import run failure")
	}
	finish(cause)

	is.logger.LogImportFinished(run.ID,
		run.Counts.Parsed, run.Counts.Inserted, run.Counts.Updated,
		run.Counts.SkippedDuplicate, run.Counts.RejectedInvalid,
		run.FinishedAt.Sub(run.StartedAt), cause)

	return run, cause
}

func parsePayload(payload []byte, format Format, provenance string) ([]LegacyRecord, []Reject, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(payload, provenance)
	case FormatHTML:
		return ParseHTML(payload, provenance)
	default:
		return nil, nil, NewUnsupportedFormatError(
			fmt.Sprintf("unsupported format %q, use json or html", format), nil)
	}
}

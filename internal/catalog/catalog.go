// Package catalog persists snapshot records, restore jobs, and import runs
// in a local SQLite database. The catalog is the authoritative registry:
// backup and migration components consult it before touching artifacts or
// the live store, and the startup sweep reads it to reclassify records
// whose writer died mid-operation.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/migration"
)

// DefaultPath is where the catalog database lives unless configured
// otherwise
const DefaultPath = "./data/catalog.db"

// The catalog is single-writer. WAL keeps concurrent readers unblocked
// while a backup or import transaction updates its record.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

var (
	_ backup.SnapshotCatalog   = (*Catalog)(nil)
	_ backup.RestoreJobCatalog = (*Catalog)(nil)
	_ migration.RunCatalog     = (*Catalog)(nil)
)

// Catalog is the SQLite-backed record store for snapshots, restore jobs,
// and import runs
type Catalog struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

// Open opens or creates the catalog database at path
func Open(path string) (*Catalog, error) {
	return OpenWithLogger(path, logging.NewDefaultLogger())
}

// OpenWithLogger opens the catalog with a caller-provided logger
func OpenWithLogger(path string, logger *logging.Logger) (*Catalog, error) {
	if path == "" {
		return nil, backup.NewCatalogError("catalog path cannot be empty", nil)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, backup.NewCatalogError("failed to create catalog directory", err).
				WithContext("path", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, backup.NewCatalogError("failed to open catalog database", err).
			WithContext("path", path)
	}

	// Single connection: the modernc driver serializes access and a second
	// writer would only surface SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, backup.NewCatalogError("failed to connect to catalog database", err).
			WithContext("path", path)
	}

	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, backup.NewCatalogError(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, backup.NewCatalogError("failed to initialize catalog schema", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, backup.NewCatalogError("failed to seed catalog metadata", err)
	}

	logger.WithFields(map[string]interface{}{
		"path":           path,
		"schema_version": SchemaVersion,
	}).Debug("Catalog opened")

	return &Catalog{db: db, path: path, logger: logger}, nil
}

// Path returns the catalog database location
func (c *Catalog) Path() string {
	return c.path
}

// Ping verifies the catalog database is reachable
func (c *Catalog) Ping(ctx context.Context) error {
	if c.db == nil {
		return backup.NewCatalogError("catalog is not open", nil)
	}
	if err := c.db.PingContext(ctx); err != nil {
		return backup.NewCatalogError("catalog database is unreachable", err)
	}
	return nil
}

// Close closes the catalog database
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Snapshot records

const snapshotColumns = "id, created_at, finished_at, status, size_bytes, checksum, location, compression, encrypted, table_count, row_count, duration_ns, message"

// InsertSnapshot adds a new snapshot record. The record is validated
// first; a pending record with no checksum or location is acceptable.
func (c *Catalog) InsertSnapshot(ctx context.Context, record *backup.SnapshotRecord) error {
	if err := record.Validate(); err != nil {
		return backup.NewValidationError("invalid snapshot record", err)
	}

	query := fmt.Sprintf(`INSERT INTO snapshots (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, snapshotColumns)
	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.CreatedAt.UnixNano(),
		nullableNanos(record.FinishedAt),
		string(record.Status),
		record.SizeBytes,
		record.Checksum,
		record.Location,
		string(record.Compression),
		boolToInt(record.Encrypted),
		record.TableCount,
		record.RowCount,
		int64(record.Duration),
		record.Message,
	)
	if err != nil {
		return backup.NewCatalogError("failed to insert snapshot record", err).
			WithContext("snapshot_id", record.ID)
	}

	c.logger.WithField("snapshot_id", record.ID).Debug("Snapshot record inserted")
	return nil
}

// UpdateSnapshot rewrites an existing snapshot record in place
func (c *Catalog) UpdateSnapshot(ctx context.Context, record *backup.SnapshotRecord) error {
	if err := record.Validate(); err != nil {
		return backup.NewValidationError("invalid snapshot record", err)
	}

	query := `UPDATE snapshots
		SET created_at = ?, finished_at = ?, status = ?, size_bytes = ?, checksum = ?,
		    location = ?, compression = ?, encrypted = ?, table_count = ?, row_count = ?,
		    duration_ns = ?, message = ?
		WHERE id = ?`
	result, err := c.db.ExecContext(ctx, query,
		record.CreatedAt.UnixNano(),
		nullableNanos(record.FinishedAt),
		string(record.Status),
		record.SizeBytes,
		record.Checksum,
		record.Location,
		string(record.Compression),
		boolToInt(record.Encrypted),
		record.TableCount,
		record.RowCount,
		int64(record.Duration),
		record.Message,
		record.ID,
	)
	if err != nil {
		return backup.NewCatalogError("failed to update snapshot record", err).
			WithContext("snapshot_id", record.ID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return backup.NewCatalogError("failed to read update result", err)
	}
	if affected == 0 {
		return backup.NewNotFoundError(fmt.Sprintf("snapshot %s not found", record.ID), nil)
	}

	return nil
}

// GetSnapshot fetches one snapshot record by ID
func (c *Catalog) GetSnapshot(ctx context.Context, snapshotID string) (*backup.SnapshotRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM snapshots WHERE id = ?", snapshotColumns)
	record, err := scanSnapshot(c.db.QueryRowContext(ctx, query, snapshotID))
	if err == sql.ErrNoRows {
		return nil, backup.NewNotFoundError(fmt.Sprintf("snapshot %s not found", snapshotID), nil)
	}
	if err != nil {
		return nil, backup.NewCatalogError("failed to read snapshot record", err).
			WithContext("snapshot_id", snapshotID)
	}
	return record, nil
}

// ListSnapshots returns snapshot records newest first, narrowed by filter
func (c *Catalog) ListSnapshots(ctx context.Context, filter backup.SnapshotFilter) ([]*backup.SnapshotRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM snapshots", snapshotColumns)

	var clauses []string
	var args []interface{}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, filter.CreatedAfter.UnixNano())
	}
	if filter.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, filter.CreatedBefore.UnixNano())
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backup.NewCatalogError("failed to list snapshot records", err)
	}
	defer rows.Close()

	var records []*backup.SnapshotRecord
	for rows.Next() {
		record, err := scanSnapshot(rows)
		if err != nil {
			return nil, backup.NewCatalogError("failed to scan snapshot record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, backup.NewCatalogError("failed to iterate snapshot records", err)
	}

	return records, nil
}

// CountPending returns the number of snapshots still in the pending state
func (c *Catalog) CountPending(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM snapshots WHERE status = ?",
		string(backup.SnapshotStatusPending),
	).Scan(&count)
	if err != nil {
		return 0, backup.NewCatalogError("failed to count pending snapshots", err)
	}
	return count, nil
}

// SweepStalePending marks pending snapshots created before now minus grace
// as corrupt and returns the IDs it reclassified. A pending record that
// old means its writer died before finishing.
func (c *Catalog) SweepStalePending(ctx context.Context, grace time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-grace).UnixNano()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, backup.NewCatalogError("failed to begin sweep transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM snapshots WHERE status = ? AND created_at < ?",
		string(backup.SnapshotStatusPending), cutoff,
	)
	if err != nil {
		return nil, backup.NewCatalogError("failed to find stale pending snapshots", err)
	}

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, backup.NewCatalogError("failed to scan stale snapshot ID", err)
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, backup.NewCatalogError("failed to iterate stale snapshots", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return nil, nil
	}

	message := fmt.Sprintf("marked corrupt by startup sweep after exceeding %s pending grace", grace)
	for _, id := range stale {
		_, err := tx.ExecContext(ctx,
			"UPDATE snapshots SET status = ?, finished_at = ?, message = ? WHERE id = ?",
			string(backup.SnapshotStatusCorrupt), now.UnixNano(), message, id,
		)
		if err != nil {
			return nil, backup.NewCatalogError("failed to reclassify stale snapshot", err).
				WithContext("snapshot_id", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, backup.NewCatalogError("failed to commit sweep transaction", err)
	}

	c.logger.LogCatalogSweep(len(stale), grace)
	return stale, nil
}

// NewestComplete returns the most recent complete snapshot
func (c *Catalog) NewestComplete(ctx context.Context) (*backup.SnapshotRecord, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM snapshots WHERE status = ? ORDER BY created_at DESC LIMIT 1",
		snapshotColumns,
	)
	record, err := scanSnapshot(c.db.QueryRowContext(ctx, query, string(backup.SnapshotStatusComplete)))
	if err == sql.ErrNoRows {
		return nil, backup.NewNotFoundError("no complete snapshot exists", nil)
	}
	if err != nil {
		return nil, backup.NewCatalogError("failed to read newest complete snapshot", err)
	}
	return record, nil
}

// Restore jobs

const restoreJobColumns = "id, snapshot_id, requested_at, finished_at, outcome, error_detail"

// InsertRestoreJob adds a new restore job record
func (c *Catalog) InsertRestoreJob(ctx context.Context, job *backup.RestoreJob) error {
	if err := job.Validate(); err != nil {
		return backup.NewValidationError("invalid restore job", err)
	}

	query := fmt.Sprintf("INSERT INTO restore_jobs (%s) VALUES (?, ?, ?, ?, ?, ?)", restoreJobColumns)
	_, err := c.db.ExecContext(ctx, query,
		job.ID,
		job.SnapshotID,
		job.RequestedAt.UnixNano(),
		nullableNanos(job.FinishedAt),
		string(job.Outcome),
		job.ErrorDetail,
	)
	if err != nil {
		return backup.NewCatalogError("failed to insert restore job", err).
			WithContext("job_id", job.ID)
	}
	return nil
}

// UpdateRestoreJob rewrites an existing restore job record
func (c *Catalog) UpdateRestoreJob(ctx context.Context, job *backup.RestoreJob) error {
	if err := job.Validate(); err != nil {
		return backup.NewValidationError("invalid restore job", err)
	}

	result, err := c.db.ExecContext(ctx,
		`UPDATE restore_jobs
		SET snapshot_id = ?, requested_at = ?, finished_at = ?, outcome = ?, error_detail = ?
		WHERE id = ?`,
		job.SnapshotID,
		job.RequestedAt.UnixNano(),
		nullableNanos(job.FinishedAt),
		string(job.Outcome),
		job.ErrorDetail,
		job.ID,
	)
	if err != nil {
		return backup.NewCatalogError("failed to update restore job", err).
			WithContext("job_id", job.ID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return backup.NewCatalogError("failed to read update result", err)
	}
	if affected == 0 {
		return backup.NewNotFoundError(fmt.Sprintf("restore job %s not found", job.ID), nil)
	}

	return nil
}

// GetRestoreJob fetches one restore job by ID
func (c *Catalog) GetRestoreJob(ctx context.Context, jobID string) (*backup.RestoreJob, error) {
	query := fmt.Sprintf("SELECT %s FROM restore_jobs WHERE id = ?", restoreJobColumns)
	job, err := scanRestoreJob(c.db.QueryRowContext(ctx, query, jobID))
	if err == sql.ErrNoRows {
		return nil, backup.NewNotFoundError(fmt.Sprintf("restore job %s not found", jobID), nil)
	}
	if err != nil {
		return nil, backup.NewCatalogError("failed to read restore job", err).
			WithContext("job_id", jobID)
	}
	return job, nil
}

// ListRestoreJobs returns restore jobs newest first
func (c *Catalog) ListRestoreJobs(ctx context.Context, limit int) ([]*backup.RestoreJob, error) {
	query := fmt.Sprintf("SELECT %s FROM restore_jobs ORDER BY requested_at DESC", restoreJobColumns)
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backup.NewCatalogError("failed to list restore jobs", err)
	}
	defer rows.Close()

	var jobs []*backup.RestoreJob
	for rows.Next() {
		job, err := scanRestoreJob(rows)
		if err != nil {
			return nil, backup.NewCatalogError("failed to scan restore job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, backup.NewCatalogError("failed to iterate restore jobs", err)
	}

	return jobs, nil
}

// Import runs

const importRunColumns = "id, source_file, format, started_at, finished_at, status, degraded, parsed, inserted, updated, skipped_duplicate, rejected_invalid, entity_counts, error_detail"

// InsertImportRun adds a new import run record along with its rejects
func (c *Catalog) InsertImportRun(ctx context.Context, run *migration.ImportRun) error {
	if err := run.Validate(); err != nil {
		return backup.NewValidationError("invalid import run", err)
	}

	entityCounts, err := marshalEntityCounts(run.EntityCounts)
	if err != nil {
		return backup.NewCatalogError("failed to encode entity counts", err).
			WithContext("run_id", run.ID)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return backup.NewCatalogError("failed to begin insert transaction", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("INSERT INTO import_runs (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", importRunColumns)
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.SourceFile,
		string(run.Format),
		run.StartedAt.UnixNano(),
		nullableNanos(run.FinishedAt),
		string(run.Status),
		boolToInt(run.Degraded),
		run.Counts.Parsed,
		run.Counts.Inserted,
		run.Counts.Updated,
		run.Counts.SkippedDuplicate,
		run.Counts.RejectedInvalid,
		entityCounts,
		run.ErrorDetail,
	)
	if err != nil {
		return backup.NewCatalogError("failed to insert import run", err).
			WithContext("run_id", run.ID)
	}

	if err := insertRejects(ctx, tx, run.ID, run.Rejects); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return backup.NewCatalogError("failed to commit import run insert", err)
	}

	c.logger.WithField("run_id", run.ID).Debug("Import run inserted")
	return nil
}

// UpdateImportRun rewrites an import run record and replaces its rejects
func (c *Catalog) UpdateImportRun(ctx context.Context, run *migration.ImportRun) error {
	if err := run.Validate(); err != nil {
		return backup.NewValidationError("invalid import run", err)
	}

	entityCounts, err := marshalEntityCounts(run.EntityCounts)
	if err != nil {
		return backup.NewCatalogError("failed to encode entity counts", err).
			WithContext("run_id", run.ID)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return backup.NewCatalogError("failed to begin update transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE import_runs
		SET source_file = ?, format = ?, started_at = ?, finished_at = ?, status = ?,
		    degraded = ?, parsed = ?, inserted = ?, updated = ?, skipped_duplicate = ?,
		    rejected_invalid = ?, entity_counts = ?, error_detail = ?
		WHERE id = ?`,
		run.SourceFile,
		string(run.Format),
		run.StartedAt.UnixNano(),
		nullableNanos(run.FinishedAt),
		string(run.Status),
		boolToInt(run.Degraded),
		run.Counts.Parsed,
		run.Counts.Inserted,
		run.Counts.Updated,
		run.Counts.SkippedDuplicate,
		run.Counts.RejectedInvalid,
		entityCounts,
		run.ErrorDetail,
		run.ID,
	)
	if err != nil {
		return backup.NewCatalogError("failed to update import run", err).
			WithContext("run_id", run.ID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return backup.NewCatalogError("failed to read update result", err)
	}
	if affected == 0 {
		return backup.NewNotFoundError(fmt.Sprintf("import run %s not found", run.ID), nil)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM import_rejects WHERE run_id = ?", run.ID); err != nil {
		return backup.NewCatalogError("failed to clear import rejects", err).
			WithContext("run_id", run.ID)
	}
	if err := insertRejects(ctx, tx, run.ID, run.Rejects); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return backup.NewCatalogError("failed to commit import run update", err)
	}

	return nil
}

// GetImportRun fetches one import run with its rejects attached
func (c *Catalog) GetImportRun(ctx context.Context, runID string) (*migration.ImportRun, error) {
	query := fmt.Sprintf("SELECT %s FROM import_runs WHERE id = ?", importRunColumns)
	run, err := scanImportRun(c.db.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, backup.NewNotFoundError(fmt.Sprintf("import run %s not found", runID), nil)
	}
	if err != nil {
		return nil, backup.NewCatalogError("failed to read import run", err).
			WithContext("run_id", runID)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT key, reason, provenance FROM import_rejects WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, backup.NewCatalogError("failed to read import rejects", err).
			WithContext("run_id", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var reject migration.Reject
		if err := rows.Scan(&reject.Key, &reject.Reason, &reject.Provenance); err != nil {
			return nil, backup.NewCatalogError("failed to scan import reject", err)
		}
		run.Rejects = append(run.Rejects, reject)
	}
	if err := rows.Err(); err != nil {
		return nil, backup.NewCatalogError("failed to iterate import rejects", err)
	}

	return run, nil
}

// ListImportRuns returns import runs newest first. Rejects are not
// attached on list; fetch a single run for full detail.
func (c *Catalog) ListImportRuns(ctx context.Context, limit int) ([]*migration.ImportRun, error) {
	query := fmt.Sprintf("SELECT %s FROM import_runs ORDER BY started_at DESC", importRunColumns)
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backup.NewCatalogError("failed to list import runs", err)
	}
	defer rows.Close()

	var runs []*migration.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, backup.NewCatalogError("failed to scan import run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, backup.NewCatalogError("failed to iterate import runs", err)
	}

	return runs, nil
}

// Scan helpers

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*backup.SnapshotRecord, error) {
	var (
		record     backup.SnapshotRecord
		createdAt  int64
		finishedAt sql.NullInt64
		status     string
		compress   string
		encrypted  int
		durationNs int64
	)
	err := row.Scan(
		&record.ID,
		&createdAt,
		&finishedAt,
		&status,
		&record.SizeBytes,
		&record.Checksum,
		&record.Location,
		&compress,
		&encrypted,
		&record.TableCount,
		&record.RowCount,
		&durationNs,
		&record.Message,
	)
	if err != nil {
		return nil, err
	}

	record.CreatedAt = nanosToTime(createdAt)
	record.FinishedAt = nanosToTimePtr(finishedAt)
	record.Status = backup.SnapshotStatus(status)
	record.Compression = backup.CompressionType(compress)
	record.Encrypted = encrypted != 0
	record.Duration = time.Duration(durationNs)
	return &record, nil
}

func scanRestoreJob(row rowScanner) (*backup.RestoreJob, error) {
	var (
		job         backup.RestoreJob
		requestedAt int64
		finishedAt  sql.NullInt64
		outcome     string
	)
	err := row.Scan(
		&job.ID,
		&job.SnapshotID,
		&requestedAt,
		&finishedAt,
		&outcome,
		&job.ErrorDetail,
	)
	if err != nil {
		return nil, err
	}

	job.RequestedAt = nanosToTime(requestedAt)
	job.FinishedAt = nanosToTimePtr(finishedAt)
	job.Outcome = backup.RestoreOutcome(outcome)
	return &job, nil
}

func scanImportRun(row rowScanner) (*migration.ImportRun, error) {
	var (
		run          migration.ImportRun
		startedAt    int64
		finishedAt   sql.NullInt64
		format       string
		status       string
		degraded     int
		entityCounts string
	)
	err := row.Scan(
		&run.ID,
		&run.SourceFile,
		&format,
		&startedAt,
		&finishedAt,
		&status,
		&degraded,
		&run.Counts.Parsed,
		&run.Counts.Inserted,
		&run.Counts.Updated,
		&run.Counts.SkippedDuplicate,
		&run.Counts.RejectedInvalid,
		&entityCounts,
		&run.ErrorDetail,
	)
	if err != nil {
		return nil, err
	}

	run.Format = migration.Format(format)
	run.StartedAt = nanosToTime(startedAt)
	run.FinishedAt = nanosToTimePtr(finishedAt)
	run.Status = migration.RunStatus(status)
	run.Degraded = degraded != 0
	if entityCounts != "" && entityCounts != "{}" {
		if err := json.Unmarshal([]byte(entityCounts), &run.EntityCounts); err != nil {
			return nil, fmt.Errorf("malformed entity counts for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func insertRejects(ctx context.Context, tx *sql.Tx, runID string, rejects []migration.Reject) error {
	if len(rejects) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO import_rejects (run_id, key, reason, provenance) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return backup.NewCatalogError("failed to prepare reject insert", err).
			WithContext("run_id", runID)
	}
	defer stmt.Close()

	for _, reject := range rejects {
		if _, err := stmt.ExecContext(ctx, runID, reject.Key, reject.Reason, reject.Provenance); err != nil {
			return backup.NewCatalogError("failed to insert import reject", err).
				WithContext("run_id", runID).
				WithContext("key", reject.Key)
		}
	}
	return nil
}

func marshalEntityCounts(counts map[string]migration.EntityCounts) (string, error) {
	if len(counts) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nanosToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nanosToTimePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := nanosToTime(n.Int64)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

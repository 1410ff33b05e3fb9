package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-vault/internal/logging"
)

// RestoreManager replaces the live store contents with a snapshot. A
// restore is fail-closed: the artifact is fully staged and verified before
// the live store is touched, and the apply happens inside one transaction
// so a failure leaves the prior contents in place.
type RestoreManager interface {
	// Restore overwrites the live store from the named snapshot. It shares
	// the maintenance lock with snapshot creation, so a restore and a
	// backup can never overlap.
	Restore(ctx context.Context, snapshotID string) (*RestoreJob, error)

	GetRestoreJob(ctx context.Context, jobID string) (*RestoreJob, error)
	ListRestoreJobs(ctx context.Context, limit int) ([]*RestoreJob, error)

	// ListRestorePoints returns the snapshots a restore can target
	ListRestorePoints(ctx context.Context) ([]*SnapshotRecord, error)
}

// restoreManager implements the RestoreManager interface
type restoreManager struct {
	catalog        SnapshotCatalog
	jobs           RestoreJobCatalog
	store          LiveStore
	storage        StorageTarget
	compressionMgr *CompressionManager
	encryptionMgr  *EncryptionManager
	lock           *MaintenanceLock
	logger         *logging.Logger
	displayService OperationDisplayService
	config         *SystemConfig
}

// NewRestoreManager creates a new restore manager. The lock must be the
// same instance the snapshot manager holds during backups.
func NewRestoreManager(
	config *SystemConfig,
	catalog SnapshotCatalog,
	jobs RestoreJobCatalog,
	store LiveStore,
	storage StorageTarget,
	lock *MaintenanceLock,
	logger *logging.Logger,
	displayService OperationDisplayService,
) (RestoreManager, error) {
	if config == nil {
		return nil, NewValidationError("snapshot system configuration is required", nil)
	}
	if catalog == nil {
		return nil, NewValidationError("snapshot catalog is required", nil)
	}
	if jobs == nil {
		return nil, NewValidationError("restore job catalog is required", nil)
	}
	if store == nil {
		return nil, NewValidationError("live store is required", nil)
	}
	if storage == nil {
		return nil, NewValidationError("storage target is required", nil)
	}
	if lock == nil {
		return nil, NewValidationError("maintenance lock is required", nil)
	}

	config.SetDefaults()

	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &restoreManager{
		catalog:        catalog,
		jobs:           jobs,
		store:          store,
		storage:        storage,
		compressionMgr: NewCompressionManager(),
		encryptionMgr:  NewEncryptionManager(&config.Encryption),
		lock:           lock,
		logger:         logger,
		displayService: displayService,
		config:         config,
	}, nil
}

// Restore overwrites the live store from a snapshot
func (rm *restoreManager) Restore(ctx context.Context, snapshotID string) (*RestoreJob, error) {
	if snapshotID == "" {
		return nil, NewValidationError("snapshot ID is required", nil)
	}

	if err := rm.lock.TryAcquire("restore"); err != nil {
		return nil, err
	}
	defer rm.lock.Release()

	started := time.Now()
	finish := rm.logger.LogOperationStart("restore", map[string]interface{}{
		"snapshot_id": snapshotID,
	})

	job, err := rm.runRestore(ctx, snapshotID, started)
	finish(err)

	if elapsed := time.Since(started); elapsed > rm.config.RunDeadline {
		rm.logger.Warn(fmt.Sprintf("Restore run exceeded deadline: took %v, deadline %v", elapsed.Round(time.Second), rm.config.RunDeadline))
	}

	return job, err
}

// runRestore drives the stage-then-apply pipeline while the lock is held
func (rm *restoreManager) runRestore(ctx context.Context, snapshotID string, started time.Time) (*RestoreJob, error) {
	record, err := rm.catalog.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	// Only complete snapshots are restorable. Anything else fails before
	// a job is even registered.
	switch record.Status {
	case SnapshotStatusComplete:
		// restorable
	case SnapshotStatusCorrupt:
		return nil, NewCorruptError(fmt.Sprintf("snapshot %s is corrupt and cannot be restored", snapshotID), nil)
	case SnapshotStatusDeleted:
		return nil, NewNotFoundError(fmt.Sprintf("snapshot %s has been deleted", snapshotID), nil)
	default:
		return nil, NewValidationError(fmt.Sprintf("snapshot %s is %s and cannot be restored", snapshotID, record.Status), nil)
	}

	job := &RestoreJob{
		ID:          GenerateRestoreID(),
		SnapshotID:  snapshotID,
		RequestedAt: started.UTC(),
		Outcome:     RestoreOutcomePending,
	}

	if err := rm.jobs.InsertRestoreJob(ctx, job); err != nil {
		return nil, NewCatalogError("failed to register restore job", err)
	}

	rm.logInfo(fmt.Sprintf("Restore started: %s from snapshot %s", job.ID, snapshotID))
	rm.displayInfo(fmt.Sprintf("Restoring snapshot %s", snapshotID))

	dump, stageErr := rm.stageSnapshot(ctx, record)
	if stageErr != nil {
		rm.finishJob(ctx, job, stageErr, started)
		return job, stageErr
	}

	// All staging succeeded; the live store is only touched from here on,
	// inside a single transaction owned by Apply
	rm.displayInfo("Applying snapshot to live store...")
	if err := rm.store.Apply(ctx, dump); err != nil {
		applyErr := NewStoreError("failed to apply snapshot to live store", err)
		rm.finishJob(ctx, job, applyErr, started)
		return job, applyErr
	}

	rm.finishJob(ctx, job, nil, started)
	rm.displaySuccess(fmt.Sprintf("Restore complete: %s (%d rows)", job.ID, dump.RowCount()))

	return job, nil
}

// stageSnapshot fetches, verifies, and unwraps the artifact without
// touching the live store
func (rm *restoreManager) stageSnapshot(ctx context.Context, record *SnapshotRecord) (*StoreDump, error) {
	rm.displayInfo("Fetching artifact from storage...")
	artifact, err := rm.storage.Get(ctx, record.Location)
	if err != nil {
		if IsNotFound(err) {
			// The catalog says complete but the artifact is gone
			rm.demoteToCorrupt(ctx, record, "artifact missing from storage")
			return nil, NewCorruptError(fmt.Sprintf("snapshot %s artifact is missing from storage", record.ID), err)
		}
		return nil, err
	}

	// Re-verify the checksum recorded at creation before trusting a byte
	rm.displayInfo("Verifying artifact checksum...")
	if CalculateDataChecksum(artifact) != record.Checksum {
		rm.demoteToCorrupt(ctx, record, "checksum mismatch")
		return nil, NewCorruptError(fmt.Sprintf("snapshot %s failed checksum verification", record.ID), nil)
	}

	if record.Encrypted {
		rm.displayInfo("Decrypting artifact...")
	}
	decrypted, err := rm.decryptArtifact(artifact, record)
	if err != nil {
		return nil, err
	}

	rm.displayInfo("Decompressing dump...")
	payload, err := rm.compressionMgr.Decompress(decrypted, record.Compression)
	if err != nil {
		rm.demoteToCorrupt(ctx, record, "decompression failed")
		return nil, NewCorruptError(fmt.Sprintf("snapshot %s dump cannot be decompressed", record.ID), err)
	}

	var dump StoreDump
	if err := json.Unmarshal(payload, &dump); err != nil {
		rm.demoteToCorrupt(ctx, record, "dump payload is not valid JSON")
		return nil, NewCorruptError(fmt.Sprintf("snapshot %s dump cannot be parsed", record.ID), err)
	}

	if dump.FormatVersion != DumpFormatVersion {
		return nil, NewValidationError(fmt.Sprintf("snapshot %s uses unsupported dump format version %d", record.ID, dump.FormatVersion), nil)
	}

	return &dump, nil
}

// decryptArtifact unwraps encryption when the record says the artifact is
// encrypted. A decryption failure is not treated as corruption: a wrong or
// missing key is a configuration problem, not a damaged artifact.
func (rm *restoreManager) decryptArtifact(artifact []byte, record *SnapshotRecord) ([]byte, error) {
	if !record.Encrypted {
		return artifact, nil
	}

	if !rm.encryptionMgr.IsEnabled() {
		return nil, NewEncryptionError(fmt.Sprintf("snapshot %s is encrypted but encryption is not configured", record.ID), nil)
	}

	decrypted, err := rm.encryptionMgr.Decrypt(artifact)
	if err != nil {
		return nil, err
	}

	return decrypted, nil
}

// finishJob records the terminal outcome of a restore job. Cancellation
// maps to aborted, any other failure to failed.
func (rm *restoreManager) finishJob(ctx context.Context, job *RestoreJob, cause error, started time.Time) {
	finishedAt := time.Now().UTC()
	job.FinishedAt = &finishedAt

	switch {
	case cause == nil:
		job.Outcome = RestoreOutcomeSuccess
	case errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded):
		job.Outcome = RestoreOutcomeAborted
		job.ErrorDetail = cause.Error()
	default:
		job.Outcome = RestoreOutcomeFailed
		job.ErrorDetail = cause.Error()
	}

	if err := rm.jobs.UpdateRestoreJob(ctx, job); err != nil {
		rm.logError(fmt.Sprintf("Failed to record restore job outcome for %s: %v", job.ID, err))
	}

	rm.logger.LogRestoreFinished(job.ID, job.SnapshotID, string(job.Outcome), time.Since(started), cause)
}

// demoteToCorrupt downgrades a snapshot record after failed verification
func (rm *restoreManager) demoteToCorrupt(ctx context.Context, record *SnapshotRecord, reason string) {
	record.Status = SnapshotStatusCorrupt
	record.Message = reason
	if err := rm.catalog.UpdateSnapshot(ctx, record); err != nil {
		rm.logError(fmt.Sprintf("Failed to mark snapshot %s corrupt: %v", record.ID, err))
	} else {
		rm.logger.Warn(fmt.Sprintf("Snapshot %s marked corrupt: %s", record.ID, reason))
		rm.displayWarning(fmt.Sprintf("Snapshot %s marked corrupt: %s", record.ID, reason))
	}
}

// GetRestoreJob retrieves a single restore job
func (rm *restoreManager) GetRestoreJob(ctx context.Context, jobID string) (*RestoreJob, error) {
	if jobID == "" {
		return nil, NewValidationError("restore job ID is required", nil)
	}

	return rm.jobs.GetRestoreJob(ctx, jobID)
}

// ListRestoreJobs lists recent restore jobs, newest first
func (rm *restoreManager) ListRestoreJobs(ctx context.Context, limit int) ([]*RestoreJob, error) {
	return rm.jobs.ListRestoreJobs(ctx, limit)
}

// ListRestorePoints returns the complete snapshots a restore can target
func (rm *restoreManager) ListRestorePoints(ctx context.Context) ([]*SnapshotRecord, error) {
	status := SnapshotStatusComplete
	records, err := rm.catalog.ListSnapshots(ctx, SnapshotFilter{Status: &status})
	if err != nil {
		return nil, NewCatalogError("failed to list restore points", err)
	}

	return records, nil
}

// Helper methods

func (rm *restoreManager) logInfo(message string) {
	if rm.logger != nil {
		rm.logger.Info(message)
	}
}

func (rm *restoreManager) logError(message string) {
	if rm.logger != nil {
		rm.logger.Error(message)
	}
}

func (rm *restoreManager) displayInfo(message string) {
	if rm.displayService != nil {
		rm.displayService.Info(message)
	}
}

func (rm *restoreManager) displaySuccess(message string) {
	if rm.displayService != nil {
		rm.displayService.Success(message)
	}
}

func (rm *restoreManager) displayWarning(message string) {
	if rm.displayService != nil {
		rm.displayService.Warning(message)
	}
}

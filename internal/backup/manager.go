package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"inventory-vault/internal/logging"
)

// OperationDisplayService interface for progress and user feedback from
// long-running snapshot and restore operations. The method signatures
// match the display service, so the concrete service satisfies it
// without an adapter.
type OperationDisplayService interface {
	Info(message string)
	Success(message string)
	Warning(message string)
}

// SnapshotManager orchestrates snapshot creation, verification, and
// lifecycle management
type SnapshotManager interface {
	// CreateSnapshot writes a full snapshot of the live store. It acquires
	// the maintenance lock for the whole run and returns an
	// ALREADY_IN_PROGRESS error when another maintenance operation holds it.
	CreateSnapshot(ctx context.Context) (*SnapshotRecord, error)

	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*SnapshotRecord, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*SnapshotRecord, error)
	VerifySnapshot(ctx context.Context, snapshotID string) (*VerificationResult, error)
	DeleteSnapshot(ctx context.Context, snapshotID string, force bool) error

	// RecoverStalePending reclassifies pending snapshots whose writer died.
	// Run it once at startup before anything else touches the catalog.
	RecoverStalePending(ctx context.Context) ([]string, error)

	// Lock exposes the maintenance lock shared with the restore engine
	Lock() *MaintenanceLock
}

// snapshotService implements the SnapshotManager interface
type snapshotService struct {
	catalog        SnapshotCatalog
	store          LiveStore
	storage        StorageTarget
	compressionMgr *CompressionManager
	encryptionMgr  *EncryptionManager
	lock           *MaintenanceLock
	logger         *logging.Logger
	displayService OperationDisplayService
	config         *SystemConfig
}

// NewSnapshotManager creates a new snapshot manager
func NewSnapshotManager(
	config *SystemConfig,
	catalog SnapshotCatalog,
	store LiveStore,
	storage StorageTarget,
	lock *MaintenanceLock,
	logger *logging.Logger,
	displayService OperationDisplayService,
) (SnapshotManager, error) {
	if config == nil {
		return nil, NewValidationError("snapshot system configuration is required", nil)
	}
	if catalog == nil {
		return nil, NewValidationError("snapshot catalog is required", nil)
	}
	if store == nil {
		return nil, NewValidationError("live store is required", nil)
	}
	if storage == nil {
		return nil, NewValidationError("storage target is required", nil)
	}

	// Set defaults if not provided
	config.SetDefaults()

	if lock == nil {
		lock = NewMaintenanceLock()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &snapshotService{
		catalog:        catalog,
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

// CreateSnapshot creates a new snapshot of the live store
func (ss *snapshotService) CreateSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	if err := ss.lock.TryAcquire("backup"); err != nil {
		return nil, err
	}
	defer ss.lock.Release()

	started := time.Now()
	finish := ss.logger.LogOperationStart("snapshot_create", map[string]interface{}{
		"compression": string(ss.config.Compression.Algorithm),
		"encrypted":   ss.encryptionMgr.IsEnabled(),
	})

	record, err := ss.runSnapshot(ctx, started)
	finish(err)

	if elapsed := time.Since(started); elapsed > ss.config.RunDeadline {
		ss.logger.Warn(fmt.Sprintf("Snapshot run exceeded deadline: took %v, deadline %v", elapsed.Round(time.Second), ss.config.RunDeadline))
	}

	return record, err
}

// runSnapshot drives the artifact pipeline while the lock is held
func (ss *snapshotService) runSnapshot(ctx context.Context, started time.Time) (*SnapshotRecord, error) {
	// The catalog allows at most one pending snapshot. A leftover pending
	// record means a previous writer died; reclassify what the grace
	// period permits and refuse to stack a second pending on top.
	pending, err := ss.catalog.CountPending(ctx)
	if err != nil {
		return nil, NewCatalogError("failed to count pending snapshots", err)
	}
	if pending > 0 {
		swept, err := ss.catalog.SweepStalePending(ctx, ss.config.PendingGrace, time.Now().UTC())
		if err != nil {
			return nil, NewCatalogError("failed to sweep stale pending snapshots", err)
		}
		ss.logger.LogCatalogSweep(len(swept), ss.config.PendingGrace)

		pending, err = ss.catalog.CountPending(ctx)
		if err != nil {
			return nil, NewCatalogError("failed to count pending snapshots", err)
		}
		if pending > 0 {
			return nil, NewBackupError(BackupErrorTypeAlreadyInProgress,
				"a pending snapshot exists and is still within its grace period", nil).
				WithContext("pending_count", pending)
		}
	}

	record := &SnapshotRecord{
		ID:          GenerateSnapshotID(),
		CreatedAt:   started.UTC(),
		Status:      SnapshotStatusPending,
		Compression: CompressionTypeNone,
		Encrypted:   ss.encryptionMgr.IsEnabled(),
	}

	if err := ss.catalog.InsertSnapshot(ctx, record); err != nil {
		return nil, NewCatalogError("failed to register pending snapshot", err)
	}

	ss.logInfo(fmt.Sprintf("Snapshot started: %s", record.ID))
	ss.displayInfo(fmt.Sprintf("Creating snapshot %s", record.ID))

	// Dump the live store
	ss.displayInfo("Dumping live store...")
	dump, err := ss.store.Dump(ctx)
	if err != nil {
		storeErr := NewStoreError("failed to dump live store", err)
		ss.failSnapshot(ctx, record, storeErr)
		return record, storeErr
	}

	record.TableCount = dump.TableCount()
	record.RowCount = dump.RowCount()

	payload, err := json.Marshal(dump)
	if err != nil {
		marshalErr := NewValidationError("failed to serialize store dump", err)
		ss.failSnapshot(ctx, record, marshalErr)
		return record, marshalErr
	}

	// Compress the dump when it clears the threshold
	algorithm := CompressionTypeNone
	level := 0
	if ss.config.Compression.Enabled && ss.compressionMgr.ShouldCompress(int64(len(payload)), ss.config.Compression.Threshold) {
		algorithm = ss.config.Compression.Algorithm
		level = ss.config.Compression.Level
	}

	ss.displayInfo("Compressing dump...")
	compressed, compStats, err := ss.compressionMgr.Compress(payload, algorithm, level)
	if err != nil {
		ss.failSnapshot(ctx, record, err)
		return record, err
	}
	record.Compression = algorithm

	if compStats != nil && algorithm != CompressionTypeNone {
		ss.logDebug(fmt.Sprintf("Snapshot %s compressed: %d -> %d bytes (ratio %.2f)",
			record.ID, compStats.OriginalSize, compStats.CompressedSize, compStats.CompressionRatio))
	}

	// Encrypt the artifact when configured
	if ss.encryptionMgr.IsEnabled() {
		ss.displayInfo("Encrypting artifact...")
	}
	artifact, _, err := ss.encryptionMgr.Encrypt(compressed)
	if err != nil {
		ss.failSnapshot(ctx, record, err)
		return record, err
	}

	// The checksum covers the artifact exactly as stored, so restore can
	// verify before unwrapping anything
	record.Checksum = CalculateDataChecksum(artifact)

	ss.displayInfo("Writing artifact to storage...")
	location, n, err := ss.storage.Put(ctx, record.ID, artifact)
	if err != nil {
		ss.failSnapshot(ctx, record, err)
		return record, err
	}

	record.Location = location
	record.SizeBytes = n
	record.Duration = time.Since(started)
	finishedAt := time.Now().UTC()
	record.FinishedAt = &finishedAt
	record.Status = SnapshotStatusComplete

	if err := ss.catalog.UpdateSnapshot(ctx, record); err != nil {
		// The artifact exists but the record never turned complete. Remove
		// the orphan so the catalog stays authoritative.
		catalogErr := NewCatalogError("failed to finalize snapshot record", err)
		if delErr := ss.storage.Delete(ctx, location); delErr != nil {
			ss.logError(fmt.Sprintf("Failed to remove orphaned artifact %s: %v", location, delErr))
		}
		ss.failSnapshot(ctx, record, catalogErr)
		return record, catalogErr
	}

	ss.displaySuccess(fmt.Sprintf("Snapshot complete: %s (%d rows, %d bytes)", record.ID, record.RowCount, record.SizeBytes))
	ss.logger.LogSnapshotFinished(record.ID, record.SizeBytes, record.RowCount, record.Duration, nil)

	return record, nil
}

// failSnapshot marks a snapshot record corrupt after a failed run. The
// original error always wins; a catalog update failure is only logged.
func (ss *snapshotService) failSnapshot(ctx context.Context, record *SnapshotRecord, cause error) {
	finishedAt := time.Now().UTC()
	record.Status = SnapshotStatusCorrupt
	record.FinishedAt = &finishedAt
	record.Message = cause.Error()

	if err := ss.catalog.UpdateSnapshot(ctx, record); err != nil {
		ss.logError(fmt.Sprintf("Failed to mark snapshot %s corrupt: %v", record.ID, err))
	}

	ss.logger.LogSnapshotFinished(record.ID, record.SizeBytes, record.RowCount, time.Since(record.CreatedAt), cause)
}

// ListSnapshots lists snapshot records with optional filtering
func (ss *snapshotService) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*SnapshotRecord, error) {
	ss.logDebug("Listing snapshots with filter")

	records, err := ss.catalog.ListSnapshots(ctx, filter)
	if err != nil {
		return nil, NewCatalogError("failed to list snapshots", err)
	}

	// Sort by creation time (newest first)
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	ss.logDebug(fmt.Sprintf("Found %d snapshots matching filter", len(records)))

	return records, nil
}

// GetSnapshot retrieves a single snapshot record
func (ss *snapshotService) GetSnapshot(ctx context.Context, snapshotID string) (*SnapshotRecord, error) {
	if snapshotID == "" {
		return nil, NewValidationError("snapshot ID is required", nil)
	}

	return ss.catalog.GetSnapshot(ctx, snapshotID)
}

// VerifySnapshot re-verifies a snapshot artifact against its recorded
// checksum. A mismatch demotes the record to corrupt.
func (ss *snapshotService) VerifySnapshot(ctx context.Context, snapshotID string) (*VerificationResult, error) {
	if snapshotID == "" {
		return nil, NewValidationError("snapshot ID is required", nil)
	}

	ss.logInfo(fmt.Sprintf("Verifying snapshot: %s", snapshotID))

	record, err := ss.catalog.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		SnapshotID: snapshotID,
		CheckedAt:  time.Now().UTC(),
	}

	if record.Status != SnapshotStatusComplete {
		result.Errors = append(result.Errors, fmt.Sprintf("snapshot is %s, only complete snapshots can be verified", record.Status))
		return result, nil
	}

	ss.displayInfo(fmt.Sprintf("Verifying snapshot %s...", snapshotID))

	artifact, err := ss.storage.Get(ctx, record.Location)
	if err != nil {
		if IsNotFound(err) {
			ss.demoteToCorrupt(ctx, record, "artifact missing from storage")
			result.Errors = append(result.Errors, "artifact missing from storage")
			return result, nil
		}
		return nil, err
	}

	result.ChecksumValid = CalculateDataChecksum(artifact) == record.Checksum
	if !result.ChecksumValid {
		ss.demoteToCorrupt(ctx, record, "checksum mismatch")
		result.Errors = append(result.Errors, "artifact checksum does not match catalog record")
		return result, nil
	}

	if int64(len(artifact)) != record.SizeBytes {
		result.Errors = append(result.Errors, fmt.Sprintf("artifact size %d does not match recorded size %d", len(artifact), record.SizeBytes))
		return result, nil
	}

	result.Valid = true
	ss.displaySuccess(fmt.Sprintf("Snapshot verified: %s", snapshotID))
	ss.logInfo(fmt.Sprintf("Snapshot verification completed: %s", snapshotID))

	return result, nil
}

// demoteToCorrupt downgrades a snapshot record after failed verification
func (ss *snapshotService) demoteToCorrupt(ctx context.Context, record *SnapshotRecord, reason string) {
	record.Status = SnapshotStatusCorrupt
	record.Message = reason
	if err := ss.catalog.UpdateSnapshot(ctx, record); err != nil {
		ss.logError(fmt.Sprintf("Failed to mark snapshot %s corrupt: %v", record.ID, err))
	} else {
		ss.logger.Warn(fmt.Sprintf("Snapshot %s marked corrupt: %s", record.ID, reason))
		ss.displayWarning(fmt.Sprintf("Snapshot %s marked corrupt: %s", record.ID, reason))
	}
}

// DeleteSnapshot deletes a snapshot artifact and marks its record deleted.
// The artifact goes first; when that fails the record keeps its status so
// a later pass can retry.
func (ss *snapshotService) DeleteSnapshot(ctx context.Context, snapshotID string, force bool) error {
	if snapshotID == "" {
		return NewValidationError("snapshot ID is required", nil)
	}

	record, err := ss.catalog.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return err
	}

	if record.Status == SnapshotStatusPending {
		return NewValidationError("cannot delete a pending snapshot", nil)
	}
	if record.Status == SnapshotStatusDeleted {
		return nil
	}

	// Safety check: the newest complete snapshot is the only guaranteed
	// restore point
	if !force && record.Status == SnapshotStatusComplete {
		newest, err := ss.catalog.NewestComplete(ctx)
		if err == nil && newest.ID == record.ID {
			return NewValidationError("cannot delete the newest complete snapshot without force flag", nil)
		}
	}

	ss.logInfo(fmt.Sprintf("Deleting snapshot: %s", snapshotID))

	if record.Location != "" {
		if err := ss.storage.Delete(ctx, record.Location); err != nil {
			return NewStorageError("failed to delete snapshot artifact", err)
		}
	}

	record.Status = SnapshotStatusDeleted
	if err := ss.catalog.UpdateSnapshot(ctx, record); err != nil {
		return NewCatalogError("failed to mark snapshot record deleted", err)
	}

	ss.displaySuccess(fmt.Sprintf("Snapshot deleted: %s", snapshotID))
	ss.logInfo(fmt.Sprintf("Snapshot deletion completed: %s", snapshotID))

	return nil
}

// RecoverStalePending marks pending snapshots older than the grace period
// corrupt. A pending record with no live writer is a crashed run.
func (ss *snapshotService) RecoverStalePending(ctx context.Context) ([]string, error) {
	swept, err := ss.catalog.SweepStalePending(ctx, ss.config.PendingGrace, time.Now().UTC())
	if err != nil {
		return nil, NewCatalogError("failed to sweep stale pending snapshots", err)
	}

	ss.logger.LogCatalogSweep(len(swept), ss.config.PendingGrace)

	return swept, nil
}

// Lock exposes the maintenance lock shared with the restore engine
func (ss *snapshotService) Lock() *MaintenanceLock {
	return ss.lock
}

// Helper methods

func (ss *snapshotService) logInfo(message string) {
	if ss.logger != nil {
		ss.logger.Info(message)
	}
}

func (ss *snapshotService) logDebug(message string) {
	if ss.logger != nil {
		ss.logger.Debug(message)
	}
}

func (ss *snapshotService) logError(message string) {
	if ss.logger != nil {
		ss.logger.Error(message)
	}
}

func (ss *snapshotService) displayInfo(message string) {
	if ss.displayService != nil {
		ss.displayService.Info(message)
	}
}

func (ss *snapshotService) displaySuccess(message string) {
	if ss.displayService != nil {
		ss.displayService.Success(message)
	}
}

func (ss *snapshotService) displayWarning(message string) {
	if ss.displayService != nil {
		ss.displayService.Warning(message)
	}
}

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"inventory-vault/internal/logging"
)

// RetentionManager prunes snapshots that have aged out of the retention
// window. It never touches pending snapshots and never deletes the newest
// complete snapshot, whatever the policy says.
type RetentionManager interface {
	// Enforce applies the policy: complete snapshots older than the window
	// are deleted down to the MinCount floor. Artifacts go first; a record
	// is only marked deleted once its artifact is gone.
	Enforce(ctx context.Context, policy RetentionPolicy, dryRun bool) (*RetentionResult, error)

	// GetRetentionCandidates returns the snapshots a policy run would delete
	GetRetentionCandidates(ctx context.Context, policy RetentionPolicy) ([]*SnapshotRecord, error)
}

// retentionManager implements the RetentionManager interface
type retentionManager struct {
	catalog SnapshotCatalog
	storage StorageTarget
	logger  *logging.Logger
}

// NewRetentionManager creates a new retention manager
func NewRetentionManager(catalog SnapshotCatalog, storage StorageTarget, logger *logging.Logger) RetentionManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &retentionManager{
		catalog: catalog,
		storage: storage,
		logger:  logger,
	}
}

// Enforce applies the retention policy
func (rm *retentionManager) Enforce(ctx context.Context, policy RetentionPolicy, dryRun bool) (*RetentionResult, error) {
	startTime := time.Now()

	if err := policy.Validate(); err != nil {
		return nil, NewValidationError("invalid retention policy", err)
	}

	rm.logger.Info(fmt.Sprintf("Enforcing retention policy: window %d days, floor %d (dry run: %v)",
		policy.WindowDays, policy.MinCount, dryRun))

	records, err := rm.catalog.ListSnapshots(ctx, SnapshotFilter{})
	if err != nil {
		return nil, NewCatalogError("failed to list snapshots for retention", err)
	}

	toDelete, toKeep := rm.applyRetentionRules(records, policy, startTime.UTC())

	result := &RetentionResult{
		RunAt:  startTime.UTC(),
		DryRun: dryRun,
	}
	for _, record := range toKeep {
		result.Kept = append(result.Kept, record.ID)
	}

	if dryRun {
		for _, record := range toDelete {
			result.Deleted = append(result.Deleted, record.ID)
		}
		result.ProcessingTime = time.Since(startTime)
		return result, nil
	}

	for _, record := range toDelete {
		if err := rm.deleteSnapshot(ctx, record); err != nil {
			// The record keeps its status so the next pass retries the
			// artifact delete
			errorMsg := fmt.Sprintf("failed to delete snapshot %s: %v", record.ID, err)
			result.Errors = append(result.Errors, errorMsg)
			result.Kept = append(result.Kept, record.ID)
			rm.logger.Error(errorMsg)
			continue
		}

		result.Deleted = append(result.Deleted, record.ID)
		rm.logger.Info(fmt.Sprintf("Deleted snapshot: %s (created: %s, age: %d days)",
			record.ID, record.CreatedAt.Format(time.RFC3339), int(time.Since(record.CreatedAt).Hours()/24)))
	}

	result.ProcessingTime = time.Since(startTime)

	rm.logger.LogRetentionRun(len(result.Deleted), len(result.Kept), result.ProcessingTime, nil)

	return result, nil
}

// GetRetentionCandidates returns the snapshots a policy run would delete
func (rm *retentionManager) GetRetentionCandidates(ctx context.Context, policy RetentionPolicy) ([]*SnapshotRecord, error) {
	if err := policy.Validate(); err != nil {
		return nil, NewValidationError("invalid retention policy", err)
	}

	records, err := rm.catalog.ListSnapshots(ctx, SnapshotFilter{})
	if err != nil {
		return nil, NewCatalogError("failed to list snapshots for retention", err)
	}

	toDelete, _ := rm.applyRetentionRules(records, policy, time.Now().UTC())
	return toDelete, nil
}

// deleteSnapshot removes one snapshot, artifact first. The record turns
// deleted only after the artifact is confirmed gone.
func (rm *retentionManager) deleteSnapshot(ctx context.Context, record *SnapshotRecord) error {
	if record.Location != "" {
		if err := rm.storage.Delete(ctx, record.Location); err != nil {
			return NewStorageError("failed to delete snapshot artifact", err)
		}
	}

	record.Status = SnapshotStatusDeleted
	if err := rm.catalog.UpdateSnapshot(ctx, record); err != nil {
		return NewCatalogError("failed to mark snapshot record deleted", err)
	}

	return nil
}

// applyRetentionRules decides which snapshots survive. Pending snapshots
// are invisible to retention; already-deleted records are skipped.
func (rm *retentionManager) applyRetentionRules(records []*SnapshotRecord, policy RetentionPolicy, now time.Time) ([]*SnapshotRecord, []*SnapshotRecord) {
	var complete []*SnapshotRecord
	var corrupt []*SnapshotRecord

	for _, record := range records {
		switch record.Status {
		case SnapshotStatusComplete:
			complete = append(complete, record)
		case SnapshotStatusCorrupt:
			corrupt = append(corrupt, record)
		}
	}

	// Sort complete snapshots by creation time (newest first)
	sort.Slice(complete, func(i, j int) bool {
		return complete[i].CreatedAt.After(complete[j].CreatedAt)
	})

	keepMap := make(map[string]bool)

	// The newest complete snapshot always survives
	if len(complete) > 0 {
		keepMap[complete[0].ID] = true
	}

	// Snapshots inside the window survive
	cutoff := now.Add(-policy.EffectiveWindow())
	for _, record := range complete {
		if record.CreatedAt.After(cutoff) {
			keepMap[record.ID] = true
		}
	}

	// The floor keeps the newest MinCount complete snapshots regardless
	// of age
	for i := 0; i < len(complete) && i < policy.MinCount; i++ {
		keepMap[complete[i].ID] = true
	}

	var toDelete []*SnapshotRecord
	var toKeep []*SnapshotRecord

	for _, record := range complete {
		if keepMap[record.ID] {
			toKeep = append(toKeep, record)
		} else {
			toDelete = append(toDelete, record)
		}
	}

	// Corrupt records stay visible for diagnosis until they age out of
	// the window, then their remains are pruned too
	for _, record := range corrupt {
		if record.CreatedAt.After(cutoff) {
			toKeep = append(toKeep, record)
		} else {
			toDelete = append(toDelete, record)
		}
	}

	return toDelete, toKeep
}

// Package backup provides snapshot, restore, and retention functionality for
// the inventory live store.
//
// This package implements the maintenance engine of the vault. Snapshots are
// full logical dumps of the live store, written as compressed (and optionally
// encrypted) artifacts with a catalog record tracking each one. The system is
// designed around the following principles:
//
// 1. Catalog First: an artifact without a catalog record does not exist, and
// a record becomes complete only after its artifact is fully written
// 2. Fail Closed: a restore stages and verifies the artifact before the live
// store is touched; any doubt leaves the store untouched
// 3. Exclusivity: snapshot, restore, retention, and import operations share
// one maintenance lock and never overlap
// 4. Verifiability: every artifact carries a SHA-256 checksum that is
// re-verified before restore and on demand
//
// Core Components:
//
//   - SnapshotManager: creates, lists, verifies, and deletes snapshots
//   - RestoreManager: restores a snapshot into the live store and records the
//     attempt as a restore job
//   - RetentionManager: enforces the age window and minimum-count floor
//   - SnapshotScheduler: fires the snapshot-then-retention sequence on a
//     daily or cron schedule
//   - StorageTarget: abstracts where artifacts live (local directory)
//
// Example usage:
//
//	manager, err := backup.NewSnapshotManager(cfg, cat, store, storage, lock, logger, nil)
//	if err != nil {
//		return err
//	}
//
//	record, err := manager.CreateSnapshot(ctx)
//	if err != nil {
//		return fmt.Errorf("backup failed: %w", err)
//	}
//
//	result, err := manager.VerifySnapshot(ctx, record.ID)
//	if err != nil {
//		return err
//	}
//	if !result.Valid {
//		return fmt.Errorf("snapshot %s failed verification", record.ID)
//	}
package backup

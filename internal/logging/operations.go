package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Per-operation helpers. Each one owns the field vocabulary for its
// operation so call sites stay one-liners and the keys stay consistent
// across the codebase.

// LogStoreConnection logs live store connection attempts.
func (l *Logger) LogStoreConnection(driver string, target string, success bool, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "store_connection",
		"driver":    driver,
		"target":    SanitizeDSN(target),
		"duration":  duration.String(),
		"success":   success,
	}

	if success {
		l.log.WithFields(fields).Info("Live store connection established")
	} else {
		if err != nil {
			fields["error"] = err.Error()
		}
		l.log.WithFields(fields).Error("Live store connection failed")
	}
}

// LogSnapshotFinished logs the terminal state of a snapshot attempt.
func (l *Logger) LogSnapshotFinished(snapshotID string, sizeBytes int64, rowCount int64, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation":   "snapshot_create",
		"snapshot_id": snapshotID,
		"size_bytes":  sizeBytes,
		"row_count":   rowCount,
		"duration":    duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.log.WithFields(fields).Error("Snapshot failed")
	} else {
		l.log.WithFields(fields).Info("Snapshot completed")
	}
}

// LogRestoreFinished logs the terminal state of a restore attempt.
func (l *Logger) LogRestoreFinished(jobID, snapshotID, outcome string, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation":   "restore",
		"job_id":      jobID,
		"snapshot_id": snapshotID,
		"outcome":     outcome,
		"duration":    duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.log.WithFields(fields).Error("Restore failed")
	} else {
		l.log.WithFields(fields).Info("Restore completed")
	}
}

// LogRetentionRun logs the result of a retention enforcement pass. A pass
// that deleted nothing is routine and stays below the normal level.
func (l *Logger) LogRetentionRun(deleted, kept int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "retention_enforce",
		"deleted":   deleted,
		"kept":      kept,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.log.WithFields(fields).Error("Retention enforcement failed")
	} else if deleted > 0 {
		l.log.WithFields(fields).Info("Retention reclaimed snapshots")
	} else {
		l.log.WithFields(fields).Debug("Retention left all snapshots in place")
	}
}

// LogImportFinished logs the terminal state of an import run.
func (l *Logger) LogImportFinished(runID string, parsed, inserted, updated, skipped, rejected int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "legacy_import",
		"run_id":    runID,
		"parsed":    parsed,
		"inserted":  inserted,
		"updated":   updated,
		"skipped":   skipped,
		"rejected":  rejected,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.log.WithFields(fields).Error("Import run failed")
	} else {
		l.log.WithFields(fields).Info("Import run completed")
	}
}

// LogSchedulerSkip logs a scheduled firing that was skipped because the
// maintenance lock was held.
func (l *Logger) LogSchedulerSkip(holder string, heldSince time.Time) {
	l.log.WithFields(logrus.Fields{
		"operation":  "scheduled_backup",
		"holder":     holder,
		"held_since": heldSince.Format(time.RFC3339),
	}).Warn("Scheduled backup skipped, maintenance lock held")
}

// LogCatalogSweep logs the startup reclassification of stale pending
// snapshots.
func (l *Logger) LogCatalogSweep(reclassified int, grace time.Duration) {
	fields := logrus.Fields{
		"operation":    "catalog_sweep",
		"reclassified": reclassified,
		"grace_period": grace.String(),
	}

	if reclassified > 0 {
		l.log.WithFields(fields).Warn("Stale pending snapshots marked corrupt")
	} else {
		l.log.WithFields(fields).Debug("No stale pending snapshots found")
	}
}

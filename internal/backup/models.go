package backup

import (
	"encoding/json"
	"strings"
	"time"
)

// Validate validates the SnapshotRecord struct
func (sr *SnapshotRecord) Validate() error {
	var errors ValidationErrors

	if sr.ID == "" {
		errors.Add("id", "snapshot ID is required", sr.ID)
	}

	if sr.CreatedAt.IsZero() {
		errors.Add("created_at", "creation timestamp is required", sr.CreatedAt)
	}

	if sr.Status == "" {
		errors.Add("status", "snapshot status is required", sr.Status)
	} else if !isValidSnapshotStatus(sr.Status) {
		errors.Add("status", "invalid snapshot status", sr.Status)
	}

	if sr.SizeBytes < 0 {
		errors.Add("size_bytes", "snapshot size cannot be negative", sr.SizeBytes)
	}

	if sr.RowCount < 0 {
		errors.Add("row_count", "row count cannot be negative", sr.RowCount)
	}

	if sr.Compression != "" && !isValidCompressionType(sr.Compression) {
		errors.Add("compression", "invalid compression type", sr.Compression)
	}

	// Completed snapshots must be locatable and verifiable
	if sr.Status == SnapshotStatusComplete {
		if sr.Checksum == "" {
			errors.Add("checksum", "complete snapshot requires a checksum", sr.Checksum)
		}
		if sr.Location == "" {
			errors.Add("location", "complete snapshot requires a storage location", sr.Location)
		}
	}

	return errors.ErrorOrNil()
}

// ToJSON serializes the SnapshotRecord to JSON
func (sr *SnapshotRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(sr, "", "  ")
}

// FromJSON deserializes JSON data into a SnapshotRecord
func (sr *SnapshotRecord) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, sr); err != nil {
		return NewValidationError("failed to unmarshal snapshot record JSON", err)
	}
	return sr.Validate()
}

// Validate validates the RestoreJob struct
func (rj *RestoreJob) Validate() error {
	var errors ValidationErrors

	if rj.ID == "" {
		errors.Add("id", "restore job ID is required", rj.ID)
	}

	if rj.SnapshotID == "" {
		errors.Add("snapshot_id", "snapshot ID is required", rj.SnapshotID)
	}

	if rj.RequestedAt.IsZero() {
		errors.Add("requested_at", "request timestamp is required", rj.RequestedAt)
	}

	if rj.Outcome != "" && !isValidRestoreOutcome(rj.Outcome) {
		errors.Add("outcome", "invalid restore outcome", rj.Outcome)
	}

	return errors.ErrorOrNil()
}

// Validate validates the RetentionPolicy struct
func (rp *RetentionPolicy) Validate() error {
	var errors ValidationErrors

	if rp.WindowDays < 0 {
		errors.Add("window_days", "retention window cannot be negative", rp.WindowDays)
	}

	if rp.MinCount < 0 {
		errors.Add("min_count", "minimum snapshot count cannot be negative", rp.MinCount)
	}

	return errors.ErrorOrNil()
}

// EffectiveWindow returns the retention window as a duration, substituting
// the default when the policy leaves WindowDays unset
func (rp RetentionPolicy) EffectiveWindow() time.Duration {
	days := rp.WindowDays
	if days == 0 {
		days = DefaultRetentionWindowDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Validate validates the StorageConfig struct
func (sc *StorageConfig) Validate() error {
	var errors ValidationErrors

	if sc.BasePath == "" {
		errors.Add("base_path", "base path is required for artifact storage", sc.BasePath)
	}

	if sc.Permissions == 0 {
		sc.Permissions = 0755 // Set default permissions
	}

	return errors.ErrorOrNil()
}

// Validate validates the ScheduleConfig struct
func (sc *ScheduleConfig) Validate() error {
	var errors ValidationErrors

	if sc.Enabled {
		if sc.Cron != "" {
			if len(strings.Fields(sc.Cron)) != 5 {
				errors.Add("cron", "cron expression must have five fields", sc.Cron)
			}
		} else if sc.DailyAt == "" {
			errors.Add("daily_at", "daily schedule time is required when the scheduler is enabled", sc.DailyAt)
		} else if _, err := time.Parse("15:04", sc.DailyAt); err != nil {
			errors.Add("daily_at", "daily schedule time must be in HH:MM form", sc.DailyAt)
		}
	}

	return errors.ErrorOrNil()
}

// Enum membership checks backing the Validate methods above.

func isValidCompressionType(ct CompressionType) bool {
	switch ct {
	case CompressionTypeNone, CompressionTypeGzip,
		CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}

func isValidSnapshotStatus(status SnapshotStatus) bool {
	switch status {
	case SnapshotStatusPending, SnapshotStatusComplete,
		SnapshotStatusCorrupt, SnapshotStatusDeleted:
		return true
	default:
		return false
	}
}

func isValidRestoreOutcome(outcome RestoreOutcome) bool {
	switch outcome {
	case RestoreOutcomePending, RestoreOutcomeSuccess,
		RestoreOutcomeFailed, RestoreOutcomeAborted:
		return true
	default:
		return false
	}
}

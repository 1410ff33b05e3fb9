package backup

import (
	"os"
	"time"
)

// SnapshotRecord is the catalog entry for a single snapshot artifact.
// The artifact itself lives in the storage target at Location; the record
// carries everything needed to list, verify, restore, and prune it.
type SnapshotRecord struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Status      SnapshotStatus  `json:"status"`
	SizeBytes   int64           `json:"size_bytes"`
	Checksum    string          `json:"checksum"`
	Location    string          `json:"location"`
	Compression CompressionType `json:"compression"`
	Encrypted   bool            `json:"encrypted"`
	TableCount  int             `json:"table_count"`
	RowCount    int64           `json:"row_count"`
	Duration    time.Duration   `json:"duration_ns"`
	Message     string          `json:"message,omitempty"`
}

// RestoreJob records a single restore attempt against a snapshot
type RestoreJob struct {
	ID          string         `json:"id"`
	SnapshotID  string         `json:"snapshot_id"`
	RequestedAt time.Time      `json:"requested_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Outcome     RestoreOutcome `json:"outcome"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// RetentionPolicy controls which complete snapshots survive a prune pass.
// Snapshots older than WindowDays are deletion candidates, but at least
// MinCount complete snapshots are always kept. MinCount of zero disables
// the floor.
type RetentionPolicy struct {
	WindowDays int `json:"window_days" yaml:"window_days"`
	MinCount   int `json:"min_count" yaml:"min_count"`
}

// RetentionResult reports the outcome of a retention pass
type RetentionResult struct {
	Deleted        []string      `json:"deleted"`
	Kept           []string      `json:"kept"`
	Errors         []string      `json:"errors,omitempty"`
	RunAt          time.Time     `json:"run_at"`
	ProcessingTime time.Duration `json:"processing_time"`
	DryRun         bool          `json:"dry_run"`
}

// SnapshotFilter for filtering snapshot lists
type SnapshotFilter struct {
	Status        *SnapshotStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
}

// VerificationResult contains snapshot verification results
type VerificationResult struct {
	SnapshotID    string    `json:"snapshot_id"`
	Valid         bool      `json:"valid"`
	ChecksumValid bool      `json:"checksum_valid"`
	Errors        []string  `json:"errors,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// StorageConfig defines artifact storage configuration
type StorageConfig struct {
	BasePath    string      `json:"base_path" yaml:"base_path"`
	Permissions os.FileMode `json:"permissions" yaml:"permissions"`
}

// ScheduleConfig controls the daily backup scheduler. Cron, when set,
// overrides the DailyAt wall clock time with a raw five-field expression.
type ScheduleConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DailyAt string `json:"daily_at" yaml:"daily_at"`
	Cron    string `json:"cron,omitempty" yaml:"cron,omitempty"`
	CatchUp bool   `json:"catch_up" yaml:"catch_up"`
}

// Enums and constants

// SnapshotStatus is the lifecycle state of a snapshot record
type SnapshotStatus string

const (
	SnapshotStatusPending  SnapshotStatus = "pending"
	SnapshotStatusComplete SnapshotStatus = "complete"
	SnapshotStatusCorrupt  SnapshotStatus = "corrupt"
	SnapshotStatusDeleted  SnapshotStatus = "deleted"
)

// RestoreOutcome is the terminal state of a restore job
type RestoreOutcome string

const (
	RestoreOutcomePending RestoreOutcome = "pending"
	RestoreOutcomeSuccess RestoreOutcome = "success"
	RestoreOutcomeFailed  RestoreOutcome = "failed"
	RestoreOutcomeAborted RestoreOutcome = "aborted"
)

type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

// DefaultRetentionWindowDays applies when a policy leaves WindowDays unset
const DefaultRetentionWindowDays = 30

// DefaultPendingGrace is how long a pending snapshot may sit before the
// startup sweep declares its writer dead and marks the record corrupt
const DefaultPendingGrace = 15 * time.Minute

// IsTerminal reports whether the snapshot has left the pending state
func (s SnapshotStatus) IsTerminal() bool {
	return s == SnapshotStatusComplete || s == SnapshotStatusCorrupt || s == SnapshotStatusDeleted
}

// Restorable reports whether a snapshot in this state may be restored
func (s SnapshotStatus) Restorable() bool {
	return s == SnapshotStatusComplete
}

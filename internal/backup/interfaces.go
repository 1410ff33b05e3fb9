package backup

import (
	"context"
	"time"
)

// StorageTarget abstracts where snapshot artifacts live. Implementations
// receive the fully assembled artifact payload and return an opaque
// location string that is stored in the catalog and passed back for
// retrieval and deletion.
type StorageTarget interface {
	Put(ctx context.Context, snapshotID string, data []byte) (location string, n int64, err error)
	Get(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) error
	List(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// SnapshotCatalog is the durable registry of snapshot records. The catalog
// is authoritative: an artifact without a record does not exist, and the
// record transitions pending to complete only after the artifact is fully
// written and verified.
type SnapshotCatalog interface {
	InsertSnapshot(ctx context.Context, record *SnapshotRecord) error
	UpdateSnapshot(ctx context.Context, record *SnapshotRecord) error
	GetSnapshot(ctx context.Context, snapshotID string) (*SnapshotRecord, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*SnapshotRecord, error)

	// CountPending returns the number of snapshots still in the pending state
	CountPending(ctx context.Context) (int, error)

	// SweepStalePending marks pending snapshots older than grace as corrupt
	// and returns the IDs it reclassified
	SweepStalePending(ctx context.Context, grace time.Duration, now time.Time) ([]string, error)

	// NewestComplete returns the most recent complete snapshot, or a
	// NOT_FOUND error when none exists
	NewestComplete(ctx context.Context) (*SnapshotRecord, error)
}

// RestoreJobCatalog records restore attempts and their outcomes
type RestoreJobCatalog interface {
	InsertRestoreJob(ctx context.Context, job *RestoreJob) error
	UpdateRestoreJob(ctx context.Context, job *RestoreJob) error
	GetRestoreJob(ctx context.Context, jobID string) (*RestoreJob, error)
	ListRestoreJobs(ctx context.Context, limit int) ([]*RestoreJob, error)
}

// LiveStore abstracts the inventory database that snapshots capture and
// restores overwrite
type LiveStore interface {
	// Dump reads every entity table into a dump in one consistent view
	Dump(ctx context.Context) (*StoreDump, error)

	// Apply replaces the full contents of the live store with the dump
	// inside a single transaction. On error the prior contents remain.
	Apply(ctx context.Context, dump *StoreDump) error

	Ping(ctx context.Context) error
}

// StoreDump is the logical payload of a snapshot artifact before
// compression and encryption
type StoreDump struct {
	FormatVersion int         `json:"format_version"`
	DumpedAt      time.Time   `json:"dumped_at"`
	Tables        []TableDump `json:"tables"`
}

// TableDump holds one table's full contents
type TableDump struct {
	Name    string          `json:"name"`
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// DumpFormatVersion identifies the artifact payload layout. Bump it when
// the dump structure changes shape.
const DumpFormatVersion = 1

// RowCount returns the total number of rows across all tables
func (d *StoreDump) RowCount() int64 {
	var n int64
	for _, t := range d.Tables {
		n += int64(len(t.Rows))
	}
	return n
}

// TableCount returns the number of tables in the dump
func (d *StoreDump) TableCount() int {
	return len(d.Tables)
}

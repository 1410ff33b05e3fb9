package catalog

const (
	// SchemaVersion tracks the catalog schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the snapshot and import run catalog. All timestamps
// are Unix nanoseconds so ordering comparisons stay integer comparisons.
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Snapshot records: one row per backup artifact, authoritative over the
-- storage target contents
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,      -- Unix nanoseconds
    finished_at INTEGER,              -- Unix nanoseconds, NULL while pending
    status TEXT NOT NULL,             -- pending, complete, corrupt, deleted
    size_bytes INTEGER NOT NULL DEFAULT 0,
    checksum TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    compression TEXT NOT NULL DEFAULT 'NONE',
    encrypted INTEGER NOT NULL DEFAULT 0,
    table_count INTEGER NOT NULL DEFAULT 0,
    row_count INTEGER NOT NULL DEFAULT 0,
    duration_ns INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_snapshots_status ON snapshots(status);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);

-- Restore jobs: one row per restore attempt
CREATE TABLE IF NOT EXISTS restore_jobs (
    id TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    requested_at INTEGER NOT NULL,    -- Unix nanoseconds
    finished_at INTEGER,              -- Unix nanoseconds, NULL while pending
    outcome TEXT NOT NULL,            -- pending, success, failed, aborted
    error_detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_restore_jobs_snapshot_id ON restore_jobs(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_restore_jobs_requested_at ON restore_jobs(requested_at);

-- Import runs: one row per legacy migration invocation
CREATE TABLE IF NOT EXISTS import_runs (
    id TEXT PRIMARY KEY,
    source_file TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL,             -- json, html
    started_at INTEGER NOT NULL,      -- Unix nanoseconds
    finished_at INTEGER,              -- Unix nanoseconds, NULL while running
    status TEXT NOT NULL,             -- running, succeeded, failed
    degraded INTEGER NOT NULL DEFAULT 0,
    parsed INTEGER NOT NULL DEFAULT 0,
    inserted INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    skipped_duplicate INTEGER NOT NULL DEFAULT 0,
    rejected_invalid INTEGER NOT NULL DEFAULT 0,
    entity_counts TEXT NOT NULL DEFAULT '{}',  -- JSON per-entity breakdown
    error_detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);

-- Import rejects: record-level diagnostics attached to a run
CREATE TABLE IF NOT EXISTS import_rejects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    key TEXT NOT NULL,
    reason TEXT NOT NULL,
    provenance TEXT NOT NULL DEFAULT '',
    FOREIGN KEY(run_id) REFERENCES import_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_import_rejects_run_id ON import_rejects(run_id);
`

// InitMetadata seeds the metadata table on first open
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`

package migration

import (
	"context"
)

// RunCatalog is the durable registry of import runs. A run is inserted in
// the running state before any record touches the live store and updated
// to its terminal state when the apply finishes, so the audit trail
// survives a crash mid-import.
type RunCatalog interface {
	InsertImportRun(ctx context.Context, run *ImportRun) error
	UpdateImportRun(ctx context.Context, run *ImportRun) error
	GetImportRun(ctx context.Context, runID string) (*ImportRun, error)
	ListImportRuns(ctx context.Context, limit int) ([]*ImportRun, error)
}

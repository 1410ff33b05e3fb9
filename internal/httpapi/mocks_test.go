package httpapi

import (
	"context"

	"github.com/stretchr/testify/mock"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/migration"
)

// MockSnapshotManager is a testify mock for backup.SnapshotManager
type MockSnapshotManager struct {
	mock.Mock
}

func (m *MockSnapshotManager) CreateSnapshot(ctx context.Context) (*backup.SnapshotRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) ListSnapshots(ctx context.Context, filter backup.SnapshotFilter) ([]*backup.SnapshotRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backup.SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) GetSnapshot(ctx context.Context, snapshotID string) (*backup.SnapshotRecord, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) VerifySnapshot(ctx context.Context, snapshotID string) (*backup.VerificationResult, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.VerificationResult), args.Error(1)
}

func (m *MockSnapshotManager) DeleteSnapshot(ctx context.Context, snapshotID string, force bool) error {
	args := m.Called(ctx, snapshotID, force)
	return args.Error(0)
}

func (m *MockSnapshotManager) RecoverStalePending(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotManager) Lock() *backup.MaintenanceLock {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*backup.MaintenanceLock)
}

// MockRestoreManager is a testify mock for backup.RestoreManager
type MockRestoreManager struct {
	mock.Mock
}

func (m *MockRestoreManager) Restore(ctx context.Context, snapshotID string) (*backup.RestoreJob, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.RestoreJob), args.Error(1)
}

func (m *MockRestoreManager) GetRestoreJob(ctx context.Context, jobID string) (*backup.RestoreJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backup.RestoreJob), args.Error(1)
}

func (m *MockRestoreManager) ListRestoreJobs(ctx context.Context, limit int) ([]*backup.RestoreJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backup.RestoreJob), args.Error(1)
}

func (m *MockRestoreManager) ListRestorePoints(ctx context.Context) ([]*backup.SnapshotRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backup.SnapshotRecord), args.Error(1)
}

// MockImportService is a testify mock for migration.ImportService
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Import(ctx context.Context, payload []byte, format migration.Format, sourceFile string) (*migration.ImportRun, error) {
	args := m.Called(ctx, payload, format, sourceFile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*migration.ImportRun), args.Error(1)
}

func (m *MockImportService) ImportFile(ctx context.Context, path string) (*migration.ImportRun, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*migration.ImportRun), args.Error(1)
}

func (m *MockImportService) GetRun(ctx context.Context, runID string) (*migration.ImportRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*migration.ImportRun), args.Error(1)
}

func (m *MockImportService) ListRuns(ctx context.Context, limit int) ([]*migration.ImportRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*migration.ImportRun), args.Error(1)
}

package backup

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockSnapshotCatalog is a testify mock for the SnapshotCatalog interface
type MockSnapshotCatalog struct {
	mock.Mock
}

func (m *MockSnapshotCatalog) InsertSnapshot(ctx context.Context, record *SnapshotRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSnapshotCatalog) UpdateSnapshot(ctx context.Context, record *SnapshotRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSnapshotCatalog) GetSnapshot(ctx context.Context, snapshotID string) (*SnapshotRecord, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotCatalog) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*SnapshotRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotCatalog) CountPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSnapshotCatalog) SweepStalePending(ctx context.Context, grace time.Duration, now time.Time) ([]string, error) {
	args := m.Called(ctx, grace, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotCatalog) NewestComplete(ctx context.Context) (*SnapshotRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SnapshotRecord), args.Error(1)
}

// MockRestoreJobCatalog is a testify mock for the RestoreJobCatalog interface
type MockRestoreJobCatalog struct {
	mock.Mock
}

func (m *MockRestoreJobCatalog) InsertRestoreJob(ctx context.Context, job *RestoreJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRestoreJobCatalog) UpdateRestoreJob(ctx context.Context, job *RestoreJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRestoreJobCatalog) GetRestoreJob(ctx context.Context, jobID string) (*RestoreJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RestoreJob), args.Error(1)
}

func (m *MockRestoreJobCatalog) ListRestoreJobs(ctx context.Context, limit int) ([]*RestoreJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*RestoreJob), args.Error(1)
}

// MockStorageTarget is a testify mock for the StorageTarget interface
type MockStorageTarget struct {
	mock.Mock
}

func (m *MockStorageTarget) Put(ctx context.Context, snapshotID string, data []byte) (string, int64, error) {
	args := m.Called(ctx, snapshotID, data)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorageTarget) Get(ctx context.Context, location string) ([]byte, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageTarget) Delete(ctx context.Context, location string) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockStorageTarget) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorageTarget) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockLiveStore is a testify mock for the LiveStore interface
type MockLiveStore struct {
	mock.Mock
}

func (m *MockLiveStore) Dump(ctx context.Context) (*StoreDump, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StoreDump), args.Error(1)
}

func (m *MockLiveStore) Apply(ctx context.Context, dump *StoreDump) error {
	args := m.Called(ctx, dump)
	return args.Error(0)
}

func (m *MockLiveStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSnapshotManager is a testify mock for the SnapshotManager interface.
// Lock returns a real lock instance so callers can inspect holder state.
type MockSnapshotManager struct {
	mock.Mock
	lock *MaintenanceLock
}

func NewMockSnapshotManager() *MockSnapshotManager {
	return &MockSnapshotManager{lock: NewMaintenanceLock()}
}

func (m *MockSnapshotManager) CreateSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*SnapshotRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) GetSnapshot(ctx context.Context, snapshotID string) (*SnapshotRecord, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SnapshotRecord), args.Error(1)
}

func (m *MockSnapshotManager) VerifySnapshot(ctx context.Context, snapshotID string) (*VerificationResult, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VerificationResult), args.Error(1)
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

func (m *MockSnapshotManager) Lock() *MaintenanceLock {
	return m.lock
}

// MockRetentionManager is a testify mock for the RetentionManager interface
type MockRetentionManager struct {
	mock.Mock
}

func (m *MockRetentionManager) Enforce(ctx context.Context, policy RetentionPolicy, dryRun bool) (*RetentionResult, error) {
	args := m.Called(ctx, policy, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RetentionResult), args.Error(1)
}

func (m *MockRetentionManager) GetRetentionCandidates(ctx context.Context, policy RetentionPolicy) ([]*SnapshotRecord, error) {
	args := m.Called(ctx, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SnapshotRecord), args.Error(1)
}

package migration

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunCatalog is a testify mock for the RunCatalog interface
type MockRunCatalog struct {
	mock.Mock
}

func (m *MockRunCatalog) InsertImportRun(ctx context.Context, run *ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunCatalog) UpdateImportRun(ctx context.Context, run *ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunCatalog) GetImportRun(ctx context.Context, runID string) (*ImportRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ImportRun), args.Error(1)
}

func (m *MockRunCatalog) ListImportRuns(ctx context.Context, limit int) ([]*ImportRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ImportRun), args.Error(1)
}

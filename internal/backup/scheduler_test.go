package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSchedulerConfig() *SystemConfig {
	config := testSystemConfig()
	config.Schedule.Enabled = true
	config.Schedule.CatchUp = false
	return config
}

func TestParseSchedule(t *testing.T) {
	t.Run("daily wall clock time", func(t *testing.T) {
		schedule, err := parseSchedule(&ScheduleConfig{DailyAt: "02:30"})
		require.NoError(t, err)

		from := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		next := schedule.Next(from)
		assert.Equal(t, time.Date(2025, 6, 16, 2, 30, 0, 0, time.UTC), next)
	})

	t.Run("fires same day when still ahead", func(t *testing.T) {
		schedule, err := parseSchedule(&ScheduleConfig{DailyAt: "23:00"})
		require.NoError(t, err)

		from := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		next := schedule.Next(from)
		assert.Equal(t, time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), next)
	})

	t.Run("cron expression overrides daily time", func(t *testing.T) {
		schedule, err := parseSchedule(&ScheduleConfig{DailyAt: "02:00", Cron: "*/15 * * * *"})
		require.NoError(t, err)

		from := time.Date(2025, 6, 15, 12, 7, 0, 0, time.UTC)
		next := schedule.Next(from)
		assert.Equal(t, time.Date(2025, 6, 15, 12, 15, 0, 0, time.UTC), next)
	})

	t.Run("invalid wall clock time", func(t *testing.T) {
		_, err := parseSchedule(&ScheduleConfig{DailyAt: "25:99"})
		require.Error(t, err)

		var backupErr *BackupError
		require.ErrorAs(t, err, &backupErr)
		assert.Equal(t, BackupErrorTypeConfiguration, backupErr.Type)
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		_, err := parseSchedule(&ScheduleConfig{DailyAt: "02:00", Cron: "not a cron"})
		assert.Error(t, err)
	})
}

func TestNewSnapshotScheduler_Validation(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	catalog := &MockSnapshotCatalog{}

	tests := []struct {
		name      string
		config    *SystemConfig
		manager   SnapshotManager
		retention RetentionManager
		catalog   SnapshotCatalog
		wantErr   bool
	}{
		{"valid dependencies", testSchedulerConfig(), manager, retention, catalog, false},
		{"nil config", nil, manager, retention, catalog, true},
		{"nil manager", testSchedulerConfig(), nil, retention, catalog, true},
		{"nil retention", testSchedulerConfig(), manager, nil, catalog, true},
		{"nil catalog", testSchedulerConfig(), manager, retention, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler, err := NewSnapshotScheduler(tt.config, tt.manager, tt.retention, tt.catalog, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, scheduler)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, scheduler)
			}
		})
	}
}

func TestSnapshotScheduler_TriggerNow(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	ctx := context.Background()

	config := testSchedulerConfig()
	record := &SnapshotRecord{ID: "snap-manual", Status: SnapshotStatusComplete}

	manager.On("CreateSnapshot", ctx).Return(record, nil)
	retention.On("Enforce", ctx, config.Retention, false).Return(&RetentionResult{}, nil)

	scheduler, err := NewSnapshotScheduler(config, manager, retention, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	got, err := scheduler.TriggerNow(ctx)

	require.NoError(t, err)
	assert.Equal(t, "snap-manual", got.ID)

	manager.AssertExpectations(t)
	retention.AssertExpectations(t)
}

func TestSnapshotScheduler_TriggerNow_SnapshotFailureSkipsRetention(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	ctx := context.Background()

	manager.On("CreateSnapshot", ctx).Return(nil, errors.New("dump failed"))

	scheduler, err := NewSnapshotScheduler(testSchedulerConfig(), manager, retention, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	got, err := scheduler.TriggerNow(ctx)

	assert.Nil(t, got)
	require.Error(t, err)

	retention.AssertNotCalled(t, "Enforce", mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotScheduler_TriggerNow_RetentionFailureIsNotFatal(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	ctx := context.Background()

	record := &SnapshotRecord{ID: "snap-manual", Status: SnapshotStatusComplete}
	manager.On("CreateSnapshot", ctx).Return(record, nil)
	retention.On("Enforce", ctx, mock.Anything, false).Return(nil, errors.New("catalog offline"))

	scheduler, err := NewSnapshotScheduler(testSchedulerConfig(), manager, retention, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	got, err := scheduler.TriggerNow(ctx)

	// The snapshot already landed; the retention failure only gets logged
	require.NoError(t, err)
	assert.Equal(t, "snap-manual", got.ID)
}

func TestSnapshotScheduler_RunScheduled_SkipsWhenLockHeld(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	ctx := context.Background()

	require.NoError(t, manager.Lock().TryAcquire("restore"))
	defer manager.Lock().Release()

	scheduler, err := NewSnapshotScheduler(testSchedulerConfig(), manager, retention, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	scheduler.(*snapshotScheduler).runScheduled(ctx)

	// The firing is skipped, not queued
	manager.AssertNotCalled(t, "CreateSnapshot", mock.Anything)
	retention.AssertNotCalled(t, "Enforce", mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotScheduler_CatchUpDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	build := func(t *testing.T, catalog SnapshotCatalog) *snapshotScheduler {
		t.Helper()
		scheduler, err := NewSnapshotSchedulerWithClock(
			testSchedulerConfig(), NewMockSnapshotManager(), &MockRetentionManager{}, catalog, nil, clock)
		require.NoError(t, err)
		return scheduler.(*snapshotScheduler)
	}

	t.Run("no complete snapshot exists", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		catalog.On("NewestComplete", ctx).Return(nil, NewNotFoundError("no complete snapshot", nil))

		assert.True(t, build(t, catalog).catchUpDue(ctx))
	})

	t.Run("newest snapshot is fresh", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		catalog.On("NewestComplete", ctx).Return(&SnapshotRecord{
			ID:        "snap-1",
			CreatedAt: now.Add(-2 * time.Hour),
			Status:    SnapshotStatusComplete,
		}, nil)

		assert.False(t, build(t, catalog).catchUpDue(ctx))
	})

	t.Run("newest snapshot is a day stale", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		catalog.On("NewestComplete", ctx).Return(&SnapshotRecord{
			ID:        "snap-1",
			CreatedAt: now.Add(-25 * time.Hour),
			Status:    SnapshotStatusComplete,
		}, nil)

		assert.True(t, build(t, catalog).catchUpDue(ctx))
	})

	t.Run("catalog error does not trigger a run", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		catalog.On("NewestComplete", ctx).Return(nil, errors.New("catalog offline"))

		assert.False(t, build(t, catalog).catchUpDue(ctx))
	})
}

func TestSnapshotScheduler_Start_CatchUpRunsImmediately(t *testing.T) {
	manager := NewMockSnapshotManager()
	retention := &MockRetentionManager{}
	catalog := &MockSnapshotCatalog{}
	ctx := context.Background()

	config := testSchedulerConfig()
	config.Schedule.CatchUp = true

	catalog.On("NewestComplete", ctx).Return(nil, NewNotFoundError("no complete snapshot", nil))
	manager.On("CreateSnapshot", ctx).Return(&SnapshotRecord{ID: "snap-catchup"}, nil)
	retention.On("Enforce", ctx, mock.Anything, false).Return(&RetentionResult{}, nil)

	scheduler, err := NewSnapshotScheduler(config, manager, retention, catalog, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Start(ctx))
	defer scheduler.Stop()

	// The catch-up run happens synchronously inside Start
	manager.AssertCalled(t, "CreateSnapshot", ctx)
	retention.AssertCalled(t, "Enforce", ctx, mock.Anything, false)
}

func TestSnapshotScheduler_Start_Disabled(t *testing.T) {
	manager := NewMockSnapshotManager()
	config := testSystemConfig()
	config.Schedule.Enabled = false

	scheduler, err := NewSnapshotScheduler(config, manager, &MockRetentionManager{}, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Start(context.Background()))
	scheduler.Stop()

	manager.AssertNotCalled(t, "CreateSnapshot", mock.Anything)
	assert.True(t, scheduler.NextRun().IsZero())
}

func TestSnapshotScheduler_Start_PublishesNextRun(t *testing.T) {
	scheduler, err := NewSnapshotScheduler(
		testSchedulerConfig(), NewMockSnapshotManager(), &MockRetentionManager{}, &MockSnapshotCatalog{}, nil)
	require.NoError(t, err)

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	// Start publishes the next firing time before returning.
	assert.False(t, scheduler.NextRun().IsZero())
	assert.True(t, scheduler.NextRun().After(time.Now()))
}

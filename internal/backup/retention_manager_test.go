package backup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completeSnapshot(id string, createdAt time.Time) *SnapshotRecord {
	return &SnapshotRecord{
		ID:        id,
		CreatedAt: createdAt,
		Status:    SnapshotStatusComplete,
		Location:  "snapshots/" + id + ".snap",
		Checksum:  "abc123",
	}
}

func TestNewRetentionManager(t *testing.T) {
	rm := NewRetentionManager(&MockSnapshotCatalog{}, &MockStorageTarget{}, nil)

	assert.NotNil(t, rm)
	assert.IsType(t, &retentionManager{}, rm)
}

func TestRetentionManager_ApplyRetentionRules_Window(t *testing.T) {
	rm := &retentionManager{logger: nil}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	policy := RetentionPolicy{WindowDays: 30}

	records := []*SnapshotRecord{
		completeSnapshot("snap-fresh", now.Add(-1*24*time.Hour)),
		completeSnapshot("snap-edge", now.Add(-29*24*time.Hour)),
		completeSnapshot("snap-stale", now.Add(-31*24*time.Hour)),
		completeSnapshot("snap-ancient", now.Add(-90*24*time.Hour)),
	}

	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	deleteIDs := recordIDs(toDelete)
	keepIDs := recordIDs(toKeep)

	assert.ElementsMatch(t, []string{"snap-stale", "snap-ancient"}, deleteIDs)
	assert.ElementsMatch(t, []string{"snap-fresh", "snap-edge"}, keepIDs)
}

func TestRetentionManager_ApplyRetentionRules_NewestAlwaysSurvives(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	policy := RetentionPolicy{WindowDays: 30}

	// Every snapshot is older than the window; the newest must still survive
	records := []*SnapshotRecord{
		completeSnapshot("snap-oldest", now.Add(-120*24*time.Hour)),
		completeSnapshot("snap-newest", now.Add(-45*24*time.Hour)),
		completeSnapshot("snap-middle", now.Add(-60*24*time.Hour)),
	}

	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	assert.ElementsMatch(t, []string{"snap-oldest", "snap-middle"}, recordIDs(toDelete))
	assert.ElementsMatch(t, []string{"snap-newest"}, recordIDs(toKeep))
}

func TestRetentionManager_ApplyRetentionRules_MinCountFloor(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// 40 daily snapshots: 30 inside the window, 10 older. A floor of 5 is
	// already satisfied by the window, so only the 10 old ones go.
	var records []*SnapshotRecord
	for i := 1; i <= 40; i++ {
		age := time.Duration(i)*24*time.Hour - 12*time.Hour
		records = append(records, completeSnapshot(
			fmt.Sprintf("snap-%02d", i),
			now.Add(-age),
		))
	}

	policy := RetentionPolicy{WindowDays: 30, MinCount: 5}
	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	assert.Len(t, toDelete, 10)
	assert.Len(t, toKeep, 30)
	for _, record := range toDelete {
		assert.True(t, record.CreatedAt.Before(now.Add(-30*24*time.Hour)),
			"only snapshots outside the window may be deleted, got %s", record.ID)
	}
}

func TestRetentionManager_ApplyRetentionRules_FloorExceedsWindow(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// Only 2 snapshots inside the window but the floor demands 5
	var records []*SnapshotRecord
	for i := 1; i <= 8; i++ {
		records = append(records, completeSnapshot(
			fmt.Sprintf("snap-%02d", i),
			now.Add(-time.Duration(i*10)*24*time.Hour),
		))
	}

	policy := RetentionPolicy{WindowDays: 30, MinCount: 5}
	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	assert.Len(t, toKeep, 5)
	assert.ElementsMatch(t, []string{"snap-06", "snap-07", "snap-08"}, recordIDs(toDelete))
}

func TestRetentionManager_ApplyRetentionRules_ZeroMinCountDisablesFloor(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	records := []*SnapshotRecord{
		completeSnapshot("snap-1", now.Add(-40*24*time.Hour)),
		completeSnapshot("snap-2", now.Add(-50*24*time.Hour)),
		completeSnapshot("snap-3", now.Add(-60*24*time.Hour)),
	}

	policy := RetentionPolicy{WindowDays: 30, MinCount: 0}
	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	// No floor: everything outside the window goes except the newest
	assert.ElementsMatch(t, []string{"snap-2", "snap-3"}, recordIDs(toDelete))
	assert.ElementsMatch(t, []string{"snap-1"}, recordIDs(toKeep))
}

func TestRetentionManager_ApplyRetentionRules_PendingInvisible(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	records := []*SnapshotRecord{
		completeSnapshot("snap-new", now.Add(-1*24*time.Hour)),
		{ID: "snap-pending", CreatedAt: now.Add(-100 * 24 * time.Hour), Status: SnapshotStatusPending},
		{ID: "snap-gone", CreatedAt: now.Add(-100 * 24 * time.Hour), Status: SnapshotStatusDeleted},
	}

	policy := RetentionPolicy{WindowDays: 30}
	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	assert.Empty(t, toDelete)
	assert.ElementsMatch(t, []string{"snap-new"}, recordIDs(toKeep))
}

func TestRetentionManager_ApplyRetentionRules_CorruptRecords(t *testing.T) {
	rm := &retentionManager{}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	records := []*SnapshotRecord{
		completeSnapshot("snap-good", now.Add(-1*24*time.Hour)),
		{ID: "snap-bad-recent", CreatedAt: now.Add(-5 * 24 * time.Hour), Status: SnapshotStatusCorrupt},
		{ID: "snap-bad-old", CreatedAt: now.Add(-45 * 24 * time.Hour), Status: SnapshotStatusCorrupt},
	}

	policy := RetentionPolicy{WindowDays: 30}
	toDelete, toKeep := rm.applyRetentionRules(records, policy, now)

	// Corrupt records inside the window stay visible for diagnosis,
	// older ones are pruned
	assert.ElementsMatch(t, []string{"snap-bad-old"}, recordIDs(toDelete))
	assert.ElementsMatch(t, []string{"snap-good", "snap-bad-recent"}, recordIDs(toKeep))
}

func TestRetentionManager_Enforce(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("deletes artifact before record", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		storage := &MockStorageTarget{}

		old := completeSnapshot("snap-old", now.Add(-60*24*time.Hour))
		fresh := completeSnapshot("snap-fresh", now.Add(-1*24*time.Hour))

		catalog.On("ListSnapshots", ctx, SnapshotFilter{}).
			Return([]*SnapshotRecord{old, fresh}, nil)

		var order []string
		storage.On("Delete", ctx, old.Location).
			Run(func(mock.Arguments) { order = append(order, "artifact") }).Return(nil)
		catalog.On("UpdateSnapshot", ctx, mock.MatchedBy(func(r *SnapshotRecord) bool {
			return r.ID == "snap-old" && r.Status == SnapshotStatusDeleted
		})).Run(func(mock.Arguments) { order = append(order, "record") }).Return(nil)

		rm := NewRetentionManager(catalog, storage, nil)

		result, err := rm.Enforce(ctx, RetentionPolicy{WindowDays: 30}, false)

		require.NoError(t, err)
		assert.Equal(t, []string{"snap-old"}, result.Deleted)
		assert.Equal(t, []string{"snap-fresh"}, result.Kept)
		assert.Empty(t, result.Errors)
		assert.Equal(t, []string{"artifact", "record"}, order)

		catalog.AssertExpectations(t)
		storage.AssertExpectations(t)
	})

	t.Run("artifact delete failure keeps the record for retry", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		storage := &MockStorageTarget{}

		old := completeSnapshot("snap-old", now.Add(-60*24*time.Hour))
		fresh := completeSnapshot("snap-fresh", now.Add(-1*24*time.Hour))

		catalog.On("ListSnapshots", ctx, SnapshotFilter{}).
			Return([]*SnapshotRecord{old, fresh}, nil)
		storage.On("Delete", ctx, old.Location).Return(errors.New("storage offline"))

		rm := NewRetentionManager(catalog, storage, nil)

		result, err := rm.Enforce(ctx, RetentionPolicy{WindowDays: 30}, false)

		require.NoError(t, err)
		assert.Empty(t, result.Deleted)
		assert.Contains(t, result.Kept, "snap-old")
		assert.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "snap-old")

		// The record must not transition while its artifact survives
		catalog.AssertNotCalled(t, "UpdateSnapshot", mock.Anything, mock.Anything)
	})

	t.Run("dry run deletes nothing", func(t *testing.T) {
		catalog := &MockSnapshotCatalog{}
		storage := &MockStorageTarget{}

		old := completeSnapshot("snap-old", now.Add(-60*24*time.Hour))
		fresh := completeSnapshot("snap-fresh", now.Add(-1*24*time.Hour))

		catalog.On("ListSnapshots", ctx, SnapshotFilter{}).
			Return([]*SnapshotRecord{old, fresh}, nil)

		rm := NewRetentionManager(catalog, storage, nil)

		result, err := rm.Enforce(ctx, RetentionPolicy{WindowDays: 30}, true)

		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.Equal(t, []string{"snap-old"}, result.Deleted)

		storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		catalog.AssertNotCalled(t, "UpdateSnapshot", mock.Anything, mock.Anything)
	})

	t.Run("invalid policy is rejected", func(t *testing.T) {
		rm := NewRetentionManager(&MockSnapshotCatalog{}, &MockStorageTarget{}, nil)

		_, err := rm.Enforce(ctx, RetentionPolicy{WindowDays: -1}, false)

		require.Error(t, err)

		var backupErr *BackupError
		require.ErrorAs(t, err, &backupErr)
		assert.Equal(t, BackupErrorTypeValidation, backupErr.Type)
	})
}

func TestRetentionManager_GetRetentionCandidates(t *testing.T) {
	catalog := &MockSnapshotCatalog{}
	ctx := context.Background()
	now := time.Now().UTC()

	old := completeSnapshot("snap-old", now.Add(-60*24*time.Hour))
	fresh := completeSnapshot("snap-fresh", now.Add(-1*24*time.Hour))

	catalog.On("ListSnapshots", ctx, SnapshotFilter{}).
		Return([]*SnapshotRecord{old, fresh}, nil)

	rm := NewRetentionManager(catalog, &MockStorageTarget{}, nil)

	candidates, err := rm.GetRetentionCandidates(ctx, RetentionPolicy{WindowDays: 30})

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "snap-old", candidates[0].ID)
}

func recordIDs(records []*SnapshotRecord) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

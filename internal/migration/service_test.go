package migration

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/store"
)

func newTestImportService(t *testing.T, catalog RunCatalog, lock *backup.MaintenanceLock) (*importService, *sql.DB) {
	t.Helper()

	st, err := store.Open(store.Config{
		Engine:  store.EngineSQLite,
		Path:    filepath.Join(t.TempDir(), "inventory.db"),
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, err := NewImportService(st.DB(), catalog, nil, lock, logging.NewDefaultLogger())
	require.NoError(t, err)

	is := svc.(*importService)
	is.clock = testClock
	is.reconciler.clock = testClock
	return is, st.DB()
}

func acceptingCatalog() *MockRunCatalog {
	catalog := new(MockRunCatalog)
	catalog.On("InsertImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(nil)
	catalog.On("UpdateImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(nil)
	return catalog
}

func TestNewImportService_Validation(t *testing.T) {
	_, err := NewImportService(nil, new(MockRunCatalog), nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsInvalid(err))

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewImportService(db, nil, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
}

func TestImport_EndToEnd_JSON(t *testing.T) {
	catalog := new(MockRunCatalog)
	var insertedStatus RunStatus
	catalog.On("InsertImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).
		Run(func(args mock.Arguments) {
			insertedStatus = args.Get(1).(*ImportRun).Status
		}).Return(nil)
	catalog.On("UpdateImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(nil)

	is, db := newTestImportService(t, catalog, nil)

	payload := []byte(`{
		"branches":{"b1":{"name":"Main"}},
		"products":{"p1":{"name":"Widget","price":"9.99"},"p2":{"name":"Gadget"}}
	}`)

	run, err := is.Import(context.Background(), payload, FormatJSON, "legacy.json")
	require.NoError(t, err)

	assert.Equal(t, RunStatusRunning, insertedStatus, "run must be recorded before the apply starts")
	assert.Equal(t, RunStatusSucceeded, run.Status)
	assert.Equal(t, "legacy.json", run.SourceFile)
	assert.Equal(t, FormatJSON, run.Format)
	assert.Regexp(t, `^import-`, run.ID)
	assert.Equal(t, 3, run.Counts.Parsed)
	assert.Equal(t, 3, run.Counts.Inserted)
	assert.True(t, run.Counts.Consistent())
	assert.False(t, run.Degraded)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, testClock(), *run.FinishedAt)

	var productCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM products").Scan(&productCount))
	assert.Equal(t, 2, productCount)

	catalog.AssertExpectations(t)
}

func TestImport_HTMLWithoutPayloadRecordsFailedRun(t *testing.T) {
	catalog := new(MockRunCatalog)
	catalog.On("InsertImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(nil)
	var persisted ImportRun
	catalog.On("UpdateImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).
		Run(func(args mock.Arguments) {
			persisted = *args.Get(1).(*ImportRun)
		}).Return(nil)

	is, _ := newTestImportService(t, catalog, nil)

	payload := []byte("<html><body><h1>Inventory</h1><p>No embedded data.</p></body></html>")
	run, err := is.Import(context.Background(), payload, FormatHTML, "backup.html")
	require.Error(t, err)
	assert.True(t, IsNoPayloadFound(err))

	require.NotNil(t, run)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, 0, run.Counts.Parsed)
	assert.Contains(t, run.ErrorDetail, "no recognizable inventory payload")
	require.NotNil(t, run.FinishedAt)

	// The terminal state reached the catalog
	assert.Equal(t, RunStatusFailed, persisted.Status)
	assert.Equal(t, run.ErrorDetail, persisted.ErrorDetail)
	catalog.AssertExpectations(t)
}

func TestImport_InvalidJSONRecordsFailedRun(t *testing.T) {
	catalog := acceptingCatalog()
	is, _ := newTestImportService(t, catalog, nil)

	run, err := is.Import(context.Background(), []byte("{broken"), FormatJSON, "legacy.json")
	require.Error(t, err)
	assert.True(t, IsInvalid(err))

	require.NotNil(t, run)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorDetail)
	catalog.AssertExpectations(t)
}

func TestImport_UnsupportedFormat(t *testing.T) {
	catalog := new(MockRunCatalog)
	is, _ := newTestImportService(t, catalog, nil)

	run, err := is.Import(context.Background(), []byte("{}"), Format("xml"), "legacy.xml")
	require.Error(t, err)
	assert.True(t, IsUnsupportedFormat(err))
	assert.Nil(t, run)
	assert.Empty(t, catalog.Calls, "an unsupported format must not open a run")
}

func TestImport_LockContention(t *testing.T) {
	catalog := new(MockRunCatalog)
	lock := backup.NewMaintenanceLock()
	require.NoError(t, lock.TryAcquire("backup"))
	defer lock.Release()

	is, _ := newTestImportService(t, catalog, lock)

	run, err := is.Import(context.Background(), []byte("{}"), FormatJSON, "legacy.json")
	require.Error(t, err)
	assert.True(t, backup.IsAlreadyInProgress(err))
	assert.Nil(t, run)
	assert.Empty(t, catalog.Calls, "a contended lock must not open a run")
}

func TestImport_ReleasesLock(t *testing.T) {
	lock := backup.NewMaintenanceLock()
	is, _ := newTestImportService(t, acceptingCatalog(), lock)

	_, err := is.Import(context.Background(), []byte(`{"products":{"p1":{"name":"Widget"}}}`), FormatJSON, "legacy.json")
	require.NoError(t, err)

	require.NoError(t, lock.TryAcquire("backup"))
	lock.Release()
}

func TestImport_ReleasesLockOnFailure(t *testing.T) {
	lock := backup.NewMaintenanceLock()
	is, _ := newTestImportService(t, acceptingCatalog(), lock)

	_, err := is.Import(context.Background(), []byte("{broken"), FormatJSON, "legacy.json")
	require.Error(t, err)

	require.NoError(t, lock.TryAcquire("backup"))
	lock.Release()
}

func TestImport_InsertFailureAbortsRun(t *testing.T) {
	catalog := new(MockRunCatalog)
	insertErr := errors.New("disk full")
	catalog.On("InsertImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(insertErr)

	lock := backup.NewMaintenanceLock()
	is, db := newTestImportService(t, catalog, lock)

	run, err := is.Import(context.Background(), []byte(`{"products":{"p1":{"name":"Widget"}}}`), FormatJSON, "legacy.json")
	require.Error(t, err)
	assert.Equal(t, insertErr, err)
	assert.Nil(t, run)

	var productCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM products").Scan(&productCount))
	assert.Equal(t, 0, productCount, "nothing may touch the store without an audit record")

	require.NoError(t, lock.TryAcquire("backup"))
	lock.Release()
}

func TestImport_UpdateFailureReturnsRunAndError(t *testing.T) {
	catalog := new(MockRunCatalog)
	updateErr := errors.New("database is locked")
	catalog.On("InsertImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(nil)
	catalog.On("UpdateImportRun", mock.Anything, mock.AnythingOfType("*migration.ImportRun")).Return(updateErr)

	is, _ := newTestImportService(t, catalog, nil)

	run, err := is.Import(context.Background(), []byte(`{"products":{"p1":{"name":"Widget"}}}`), FormatJSON, "legacy.json")
	require.Error(t, err)
	assert.Equal(t, updateErr, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusSucceeded, run.Status)
}

func TestImport_DegradedRunRecorded(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin().WillReturnError(errors.New("transactions unavailable"))
	dbMock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, updated_at, name, category, price, cost, measurement_unit, barcode FROM products WHERE name = ?")).
		WithArgs("Widget").
		WillReturnError(sql.ErrNoRows)
	dbMock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	catalog := acceptingCatalog()
	logger := logging.NewDefaultLogger()
	is := &importService{
		catalog:    catalog,
		reconciler: NewReconciler(db, nil, logger),
		lock:       backup.NewMaintenanceLock(),
		logger:     logger,
		clock:      testClock,
	}
	is.reconciler.clock = testClock

	run, err := is.Import(context.Background(), []byte(`{"products":{"p1":{"name":"Widget"}}}`), FormatJSON, "legacy.json")
	require.NoError(t, err)
	assert.True(t, run.Degraded)
	assert.Equal(t, RunStatusSucceeded, run.Status)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestImportFile(t *testing.T) {
	catalog := acceptingCatalog()
	is, db := newTestImportService(t, catalog, nil)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":{"p1":{"name":"Widget"}}}`), 0o644))

	run, err := is.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "export.json", run.SourceFile)
	assert.Equal(t, FormatJSON, run.Format)
	assert.Equal(t, 1, run.Counts.Inserted)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM products").Scan(&name))
	assert.Equal(t, "Widget", name)
}

func TestImportFile_UnsupportedExtension(t *testing.T) {
	catalog := new(MockRunCatalog)
	is, _ := newTestImportService(t, catalog, nil)

	_, err := is.ImportFile(context.Background(), "/tmp/export.xml")
	require.Error(t, err)
	assert.True(t, IsUnsupportedFormat(err))
	assert.Empty(t, catalog.Calls)
}

func TestImportFile_MissingFile(t *testing.T) {
	catalog := new(MockRunCatalog)
	is, _ := newTestImportService(t, catalog, nil)

	_, err := is.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
	assert.Empty(t, catalog.Calls)
}

func TestGetRun(t *testing.T) {
	catalog := new(MockRunCatalog)
	want := &ImportRun{ID: "import-abc", Status: RunStatusSucceeded}
	catalog.On("GetImportRun", mock.Anything, "import-abc").Return(want, nil)

	is, _ := newTestImportService(t, catalog, nil)

	got, err := is.GetRun(context.Background(), "import-abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListRuns(t *testing.T) {
	catalog := new(MockRunCatalog)
	want := []*ImportRun{
		{ID: "import-b", Status: RunStatusSucceeded},
		{ID: "import-a", Status: RunStatusFailed},
	}
	catalog.On("ListImportRuns", mock.Anything, 10).Return(want, nil)

	is, _ := newTestImportService(t, catalog, nil)

	got, err := is.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

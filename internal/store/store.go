// Package store connects the live inventory database and moves whole-table
// contents in and out of it. It backs snapshot capture, restore, and the
// legacy import reconciler, on either the embedded sqlite engine or an
// external MySQL server.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/errors"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/schema"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // pure Go sqlite driver
)

// sqlite allows a single writer; the pragmas below keep readers unblocked
// while the import reconciler or a restore holds the write transaction.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

var _ backup.LiveStore = (*Store)(nil)

// Store is the live inventory database. It implements backup.LiveStore:
// Dump reads every entity table in one consistent view and Apply replaces
// the full contents inside a single transaction.
type Store struct {
	db           *sql.DB
	config       Config
	dialect      schema.Dialect
	logger       *logging.Logger
	retryHandler *errors.RetryHandler
	queryTimeout time.Duration
}

// Open connects to the live store described by config, retrying recoverable
// connection failures, and ensures the entity tables exist.
func Open(config Config) (*Store, error) {
	return OpenWithLogger(config, logging.NewDefaultLogger())
}

// OpenWithLogger is Open with a custom logger
func OpenWithLogger(config Config, logger *logging.Logger) (*Store, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, err.Error(), nil)
	}

	s := &Store{
		config:       config,
		logger:       logger,
		retryHandler: errors.NewDefaultRetryHandler(),
		queryTimeout: config.Timeout,
	}

	switch config.Engine {
	case EngineSQLite:
		s.dialect = schema.DialectSQLite
	case EngineMySQL:
		s.dialect = schema.DialectMySQL
	}

	startTime := time.Now()
	err := s.connect()
	duration := time.Since(startTime)

	s.logger.LogStoreConnection(config.Engine, config.Target(), err == nil, duration, err)

	if err != nil {
		return nil, err
	}

	if err := s.initSchema(); err != nil {
		s.db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) connect() error {
	if s.config.Engine == EngineSQLite {
		dir := filepath.Dir(s.config.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapError(err, "failed to create live store directory")
		}
	}

	ctx, cancel := errors.CreateContextWithTimeout(s.config.Timeout)
	defer cancel()

	return s.retryHandler.Retry(ctx, func() error {
		db, connectErr := sql.Open(s.config.Engine, s.config.DSN())
		if connectErr != nil {
			return errors.WrapError(connectErr, "failed to open live store connection")
		}

		if s.config.Engine == EngineSQLite {
			// One connection only: a second writer would hit SQLITE_BUSY
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(0)
		} else {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, s.config.Timeout)
		defer pingCancel()
		if pingErr := db.PingContext(pingCtx); pingErr != nil {
			db.Close()
			return errors.WrapError(pingErr, "failed to ping live store")
		}

		if s.config.Engine == EngineSQLite {
			for _, pragma := range sqlitePragmas {
				if _, pragmaErr := db.Exec(pragma); pragmaErr != nil {
					db.Close()
					return errors.WrapError(pragmaErr, "failed to configure sqlite")
				}
			}
		}

		s.db = db
		return nil
	})
}

// initSchema creates any missing entity tables. Existing tables and their
// contents are left alone.
func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	for _, stmt := range schema.CreateSchemaSQL(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.WrapError(err, "failed to initialize live store schema")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"engine": s.config.Engine,
		"tables": len(schema.Entities()),
	}).Debug("Live store schema verified")

	return nil
}

// DB exposes the underlying connection for callers that manage their own
// transactions, such as the import reconciler.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the connected engine
func (s *Store) Dialect() schema.Dialect {
	return s.dialect
}

// Engine returns the configured engine name
func (s *Store) Engine() string {
	return s.config.Engine
}

// Ping verifies the live store is reachable
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "live store is not connected", nil)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping live store")
	}
	return nil
}

// Version reports the engine version string
func (s *Store) Version(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", errors.NewAppError(errors.ErrorTypeValidation, "live store is not connected", nil)
	}

	query := "SELECT sqlite_version()"
	if s.config.Engine == EngineMySQL {
		query = "SELECT VERSION()"
	}

	var version string
	if err := s.db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", errors.WrapError(err, "failed to get live store version")
	}

	return version, nil
}

// Close gracefully closes the live store connection
func (s *Store) Close() error {
	if s.db == nil {
		s.logger.Debug("Live store connection is nil, nothing to close")
		return nil
	}

	s.logger.Debug("Closing live store connection")
	if err := s.db.Close(); err != nil {
		return errors.WrapError(err, "failed to close live store connection")
	}

	s.db = nil
	return nil
}

// Dump reads every entity table into a dump within one transaction, so the
// snapshot sees a single consistent view even while other readers run.
func (s *Store) Dump(ctx context.Context) (*backup.StoreDump, error) {
	if s.db == nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "live store is not connected", nil)
	}

	startTime := time.Now()

	// sqlite serializes through its write lock; mysql needs REPEATABLE READ
	// pinned to get one InnoDB snapshot across every table read.
	var opts *sql.TxOptions
	if s.config.Engine == EngineMySQL {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.WrapError(err, "failed to begin dump transaction")
	}
	// Reads only; rolling back releases the view without side effects
	defer tx.Rollback()

	dump := &backup.StoreDump{
		FormatVersion: backup.DumpFormatVersion,
		DumpedAt:      time.Now().UTC(),
	}

	for _, entity := range schema.Entities() {
		table, tableErr := s.dumpTable(ctx, tx, entity)
		if tableErr != nil {
			return nil, tableErr
		}
		dump.Tables = append(dump.Tables, *table)
	}

	s.logger.WithFields(map[string]interface{}{
		"tables":   dump.TableCount(),
		"rows":     dump.RowCount(),
		"duration": time.Since(startTime).String(),
	}).Info("Live store dump complete")

	return dump, nil
}

func (s *Store) dumpTable(ctx context.Context, tx *sql.Tx, entity *schema.Entity) (*backup.TableDump, error) {
	columns := entity.AllColumns()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(columns, ", "), entity.Name, schema.IDColumn)

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to read table %s", entity.Name))
	}
	defer rows.Close()

	table := &backup.TableDump{
		Name:    entity.Name,
		Columns: columns,
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errors.WrapError(err, fmt.Sprintf("failed to scan row from table %s", entity.Name))
		}

		table.Rows = append(table.Rows, normalizeRow(values))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to iterate table %s", entity.Name))
	}

	s.logger.WithFields(map[string]interface{}{
		"table": entity.Name,
		"rows":  len(table.Rows),
	}).Debug("Dumped table")

	return table, nil
}

// normalizeRow converts driver byte slices to strings. MySQL hands text
// columns back as []byte, which encoding/json would encode as base64;
// sqlite hands back strings. Artifacts must not depend on which engine
// produced them.
func normalizeRow(values []interface{}) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
		} else {
			row[i] = v
		}
	}
	return row
}

// Apply replaces the full contents of the live store with the dump inside
// a single transaction. On any error the transaction rolls back and the
// prior contents remain untouched.
func (s *Store) Apply(ctx context.Context, dump *backup.StoreDump) error {
	if s.db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "live store is not connected", nil)
	}
	if dump == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "dump is nil", nil)
	}
	if dump.FormatVersion != backup.DumpFormatVersion {
		return errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("unsupported dump format version %d", dump.FormatVersion), nil).
			WithContext("format_version", dump.FormatVersion)
	}

	startTime := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, "failed to begin restore transaction")
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.WithField("error", rollbackErr.Error()).Error("Failed to rollback restore transaction")
			}
		}
	}()

	// Clear dependents before the tables they reference
	entities := schema.Entities()
	for i := len(entities) - 1; i >= 0; i-- {
		if _, execErr := tx.ExecContext(ctx, "DELETE FROM "+entities[i].Name); execErr != nil {
			err = errors.WrapError(execErr, fmt.Sprintf("failed to clear table %s", entities[i].Name))
			return err
		}
	}

	var totalRows int64
	for _, table := range dump.Tables {
		n, insertErr := s.applyTable(ctx, tx, table)
		if insertErr != nil {
			err = insertErr
			return err
		}
		totalRows += n
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapError(err, "failed to commit restore transaction")
	}

	s.logger.WithFields(map[string]interface{}{
		"tables":   len(dump.Tables),
		"rows":     totalRows,
		"duration": time.Since(startTime).String(),
	}).Info("Live store contents replaced")

	return nil
}

func (s *Store) applyTable(ctx context.Context, tx *sql.Tx, table backup.TableDump) (int64, error) {
	entity, ok := schema.EntityByName(table.Name)
	if !ok {
		return 0, errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("dump contains unknown table %s", table.Name), nil)
	}

	for _, column := range table.Columns {
		if !knownColumn(entity, column) {
			return 0, errors.NewAppError(errors.ErrorTypeValidation,
				fmt.Sprintf("dump table %s has unknown column %s", table.Name, column), nil)
		}
	}

	if len(table.Rows) == 0 {
		return 0, nil
	}

	kinds := make([]schema.FieldKind, len(table.Columns))
	for i, column := range table.Columns {
		kinds[i] = columnKind(entity, column)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.Columns, ", "), placeholders(len(table.Columns)))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, errors.WrapError(err, fmt.Sprintf("failed to prepare insert for table %s", table.Name))
	}
	defer stmt.Close()

	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return 0, errors.NewAppError(errors.ErrorTypeValidation,
				fmt.Sprintf("dump table %s row %d has %d values for %d columns",
					table.Name, i, len(row), len(table.Columns)), nil)
		}

		args := make([]interface{}, len(row))
		for j, v := range row {
			args[j] = bindValue(kinds[j], v)
		}

		if _, execErr := stmt.ExecContext(ctx, args...); execErr != nil {
			appErr := errors.WrapError(execErr, fmt.Sprintf("failed to insert into table %s", table.Name))
			if wrapped, ok := appErr.(*errors.AppError); ok {
				wrapped.WithContext("row_index", i)
			}
			return 0, appErr
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"table": table.Name,
		"rows":  len(table.Rows),
	}).Debug("Restored table")

	return int64(len(table.Rows)), nil
}

func knownColumn(entity *schema.Entity, column string) bool {
	if column == schema.IDColumn || column == schema.UpdatedAtColumn {
		return true
	}
	_, ok := entity.Field(column)
	return ok
}

func columnKind(entity *schema.Entity, column string) schema.FieldKind {
	if column == schema.IDColumn {
		return schema.FieldInteger
	}
	if column == schema.UpdatedAtColumn {
		return schema.FieldText
	}
	if field, ok := entity.Field(column); ok {
		return field.Kind
	}
	return schema.FieldText
}

// bindValue coerces a decoded dump value to the column's storage type.
// A JSON round-trip delivers every number as float64, including ids, so
// integer columns must be rebound before the insert.
func bindValue(kind schema.FieldKind, v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch kind {
	case schema.FieldInteger:
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int64:
			return n
		}
	case schema.FieldNumeric:
		if n, ok := v.(int64); ok {
			return float64(n)
		}
	}

	return v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

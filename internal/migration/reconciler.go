package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inventory-vault/internal/errors"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/schema"
)

// Outcome is the result of reconciling one parsed payload against the
// live store
type Outcome struct {
	Counts       RunCounts
	EntityCounts map[string]EntityCounts
	Rejects      []Reject
	Degraded     bool
}

// Reconciler merges flattened legacy records into the canonical tables.
// Records are grouped into entity instances by their first two path
// segments, and each group lands in exactly one outcome bucket: inserted,
// updated, skipped as duplicate, or rejected as invalid.
type Reconciler struct {
	db      *sql.DB
	mapping *Mapping
	logger  *logging.Logger
	clock   func() time.Time
}

// NewReconciler creates a reconciler over the live store's database
// handle. A nil mapping selects the default mapping.
func NewReconciler(db *sql.DB, mapping *Mapping, logger *logging.Logger) *Reconciler {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Reconciler{
		db:      db,
		mapping: mapping,
		logger:  logger,
		clock:   time.Now,
	}
}

// execer covers *sql.DB and *sql.Tx so the apply path is the same in
// transactional and degraded mode
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// entityGroup is one legacy entity instance: all records sharing the
// first two path segments, resolved onto columns of a single entity
type entityGroup struct {
	key        string
	entity     *schema.Entity
	values     map[string]interface{}
	timestamp  *time.Time
	rejects    []Reject
	provenance string
}

// Reconcile applies parsed records to the live store in one transaction.
// When the engine cannot open a transaction the apply falls back to
// autocommit statements and the outcome is flagged degraded; in that mode
// a failing group is rejected instead of aborting the run.
func (r *Reconciler) Reconcile(ctx context.Context, records []LegacyRecord, parseRejects []Reject) (*Outcome, error) {
	outcome := &Outcome{
		EntityCounts: make(map[string]EntityCounts),
		Rejects:      append([]Reject{}, parseRejects...),
	}

	groups := r.buildGroups(records, outcome)
	outcome.Counts.Parsed = len(groups)
	if len(groups) == 0 {
		return outcome, nil
	}

	var exec execer
	tx, txErr := r.db.BeginTx(ctx, nil)
	if txErr != nil {
		r.logger.WithField("error", txErr.Error()).
			Warn("Transaction unavailable, applying import in autocommit mode")
		outcome.Degraded = true
		exec = r.db
	} else {
		exec = tx
	}

	applied := make(map[string]bool)
	for _, group := range orderGroups(groups) {
		if err := r.applyGroup(ctx, exec, group, applied, outcome); err != nil {
			if tx != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					r.logger.WithField("error", rbErr.Error()).Error("Rollback failed after import error")
				}
			}
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return nil, errors.WrapError(err, "failed to commit import transaction")
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"parsed":            outcome.Counts.Parsed,
		"inserted":          outcome.Counts.Inserted,
		"updated":           outcome.Counts.Updated,
		"skipped_duplicate": outcome.Counts.SkippedDuplicate,
		"rejected_invalid":  outcome.Counts.RejectedInvalid,
		"degraded":          outcome.Degraded,
	}).Debug("Reconciliation finished")

	return outcome, nil
}

// buildGroups folds records into entity groups. Keys too short to address
// an entity field become diagnostics without forming a group; resolution
// and coercion failures become per-key diagnostics on their group.
func (r *Reconciler) buildGroups(records []LegacyRecord, outcome *Outcome) []*entityGroup {
	groups := make(map[string]*entityGroup)
	var order []*entityGroup

	for _, record := range records {
		parts := strings.SplitN(record.Key, ".", 3)
		if len(parts) < 3 {
			outcome.Rejects = append(outcome.Rejects, Reject{
				Key:        record.Key,
				Reason:     "key does not address an entity field",
				Provenance: record.Provenance,
			})
			continue
		}

		groupKey := parts[0] + "." + parts[1]
		group, ok := groups[groupKey]
		if !ok {
			group = &entityGroup{
				key:        groupKey,
				values:     make(map[string]interface{}),
				provenance: record.Provenance,
			}
			groups[groupKey] = group
			order = append(order, group)
		}

		resolution, ok := r.mapping.Resolve(record.Key)
		if !ok {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     "no mapping for key",
				Provenance: record.Provenance,
			})
			continue
		}

		entity, ok := schema.EntityByName(resolution.Entity)
		if !ok {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     fmt.Sprintf("mapping targets unknown entity %s", resolution.Entity),
				Provenance: record.Provenance,
			})
			continue
		}

		if group.entity == nil {
			group.entity = entity
		} else if group.entity.Name != entity.Name {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     fmt.Sprintf("maps to %s but group already maps to %s", entity.Name, group.entity.Name),
				Provenance: record.Provenance,
			})
			continue
		}

		if resolution.Field == schema.UpdatedAtColumn {
			ts := record.Timestamp
			if ts == nil {
				ts = ParseLegacyTimestamp(record.Value)
			}
			if ts == nil {
				group.rejects = append(group.rejects, Reject{
					Key:        record.Key,
					Reason:     fmt.Sprintf("unreadable timestamp %q", record.Value),
					Provenance: record.Provenance,
				})
				continue
			}
			if group.timestamp == nil || ts.After(*group.timestamp) {
				group.timestamp = ts
			}
			continue
		}

		if _, ok := entity.Field(resolution.Field); !ok {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     fmt.Sprintf("mapping targets unknown column %s.%s", resolution.Entity, resolution.Field),
				Provenance: record.Provenance,
			})
			continue
		}

		value, err := schema.CoerceValue(resolution.Kind, record.Value)
		if err != nil {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     err.Error(),
				Provenance: record.Provenance,
			})
			continue
		}

		if _, dup := group.values[resolution.Field]; dup {
			group.rejects = append(group.rejects, Reject{
				Key:        record.Key,
				Reason:     fmt.Sprintf("duplicate value for column %s", resolution.Field),
				Provenance: record.Provenance,
			})
			continue
		}
		group.values[resolution.Field] = value
	}

	return order
}

// orderGroups arranges groups so referenced entities apply before the
// entities that name them, preserving first-seen order within each entity
func orderGroups(groups []*entityGroup) []*entityGroup {
	ordered := make([]*entityGroup, 0, len(groups))
	for _, entity := range schema.Entities() {
		for _, group := range groups {
			if group.entity != nil && group.entity.Name == entity.Name {
				ordered = append(ordered, group)
			}
		}
	}
	// Groups that never resolved an entity carry no statements; they are
	// appended so their rejection is still counted
	for _, group := range groups {
		if group.entity == nil {
			ordered = append(ordered, group)
		}
	}
	return ordered
}

func (r *Reconciler) applyGroup(ctx context.Context, exec execer, group *entityGroup, applied map[string]bool, outcome *Outcome) error {
	outcome.Rejects = append(outcome.Rejects, group.rejects...)

	if group.entity == nil || len(group.values) == 0 {
		outcome.Rejects = append(outcome.Rejects, Reject{
			Key:        group.key,
			Reason:     "no usable fields",
			Provenance: group.provenance,
		})
		r.countReject(group, outcome)
		return nil
	}

	for _, name := range group.entity.RequiredFields() {
		value, ok := group.values[name]
		if !ok {
			outcome.Rejects = append(outcome.Rejects, Reject{
				Key:        group.key,
				Reason:     fmt.Sprintf("missing required field %s", name),
				Provenance: group.provenance,
			})
			r.countReject(group, outcome)
			return nil
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			outcome.Rejects = append(outcome.Rejects, Reject{
				Key:        group.key,
				Reason:     fmt.Sprintf("required field %s is empty", name),
				Provenance: group.provenance,
			})
			r.countReject(group, outcome)
			return nil
		}
	}

	// Optional natural key columns the payload omitted participate in
	// matching with their zero value, and the insert writes that same
	// value so match and row stay consistent
	for _, name := range group.entity.NaturalKey {
		if _, ok := group.values[name]; !ok {
			field, _ := group.entity.Field(name)
			group.values[name] = schema.ZeroValue(field.Kind)
		}
	}

	naturalKey := r.naturalKeyOf(group)
	if applied[naturalKey] {
		r.countSkip(group, outcome)
		return nil
	}
	applied[naturalKey] = true

	existing, err := r.lookupExisting(ctx, exec, group)
	if err == sql.ErrNoRows {
		return r.insertGroup(ctx, exec, group, outcome)
	}
	if err != nil {
		return r.groupFailure(group, outcome,
			errors.WrapError(err, fmt.Sprintf("failed to look up %s row", group.entity.Name)))
	}

	return r.updateGroup(ctx, exec, group, existing, outcome)
}

// existingRow is the current database row a group matched by natural key
type existingRow struct {
	id        int64
	updatedAt string
	columns   map[string]interface{}
}

func (r *Reconciler) lookupExisting(ctx context.Context, exec execer, group *entityGroup) (*existingRow, error) {
	entity := group.entity
	selectCols := append([]string{schema.IDColumn, schema.UpdatedAtColumn}, entity.ColumnNames()...)

	conditions := make([]string, len(entity.NaturalKey))
	args := make([]interface{}, len(entity.NaturalKey))
	for i, name := range entity.NaturalKey {
		conditions[i] = name + " = ?"
		args[i] = group.values[name]
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(selectCols, ", "), entity.Name, strings.Join(conditions, " AND "))

	values := make([]interface{}, len(selectCols))
	pointers := make([]interface{}, len(selectCols))
	for i := range values {
		pointers[i] = &values[i]
	}

	if err := exec.QueryRowContext(ctx, query, args...).Scan(pointers...); err != nil {
		return nil, err
	}

	row := &existingRow{columns: make(map[string]interface{})}
	for i, name := range selectCols {
		value := normalizeScanned(values[i])
		switch name {
		case schema.IDColumn:
			if id, ok := value.(int64); ok {
				row.id = id
			}
		case schema.UpdatedAtColumn:
			if s, ok := value.(string); ok {
				row.updatedAt = s
			}
		default:
			row.columns[name] = value
		}
	}
	return row, nil
}

func (r *Reconciler) insertGroup(ctx context.Context, exec execer, group *entityGroup, outcome *Outcome) error {
	entity := group.entity
	columns := entity.ColumnNames()

	args := make([]interface{}, 0, len(columns)+1)
	for _, name := range columns {
		if value, ok := group.values[name]; ok {
			args = append(args, value)
			continue
		}
		field, _ := entity.Field(name)
		args = append(args, schema.ZeroValue(field.Kind))
	}
	args = append(args, formatTimestamp(r.stampFor(group)))

	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s)",
		entity.Name,
		strings.Join(columns, ", "),
		schema.UpdatedAtColumn,
		placeholders(len(columns)+1))

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return r.groupFailure(group, outcome,
			errors.WrapError(err, fmt.Sprintf("failed to insert %s row", entity.Name)))
	}

	outcome.Counts.Inserted++
	counts := outcome.EntityCounts[entity.Name]
	counts.Inserted++
	outcome.EntityCounts[entity.Name] = counts
	return nil
}

func (r *Reconciler) updateGroup(ctx context.Context, exec execer, group *entityGroup, existing *existingRow, outcome *Outcome) error {
	entity := group.entity

	if group.timestamp != nil {
		existingTS := ParseLegacyTimestamp(existing.updatedAt)
		if existingTS != nil && !group.timestamp.After(*existingTS) {
			// The store already holds this version or a newer one
			r.countSkip(group, outcome)
			return nil
		}
		return r.overwriteRow(ctx, exec, group, existing, outcome)
	}

	// Without a payload timestamp only gaps are filled: columns the store
	// has no value for take the payload's value, existing data wins
	var setCols []string
	var args []interface{}
	for _, name := range entity.ColumnNames() {
		payload, ok := group.values[name]
		if !ok || isEmptyValue(payload) {
			continue
		}
		if isEmptyValue(existing.columns[name]) {
			setCols = append(setCols, name+" = ?")
			args = append(args, payload)
		}
	}

	if len(setCols) == 0 {
		r.countSkip(group, outcome)
		return nil
	}

	setCols = append(setCols, schema.UpdatedAtColumn+" = ?")
	args = append(args, formatTimestamp(r.clock()), existing.id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		entity.Name, strings.Join(setCols, ", "), schema.IDColumn)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return r.groupFailure(group, outcome,
			errors.WrapError(err, fmt.Sprintf("failed to update %s row", entity.Name)))
	}

	r.countUpdate(group, outcome)
	return nil
}

func (r *Reconciler) overwriteRow(ctx context.Context, exec execer, group *entityGroup, existing *existingRow, outcome *Outcome) error {
	entity := group.entity

	var setCols []string
	var args []interface{}
	for _, name := range entity.ColumnNames() {
		if value, ok := group.values[name]; ok {
			setCols = append(setCols, name+" = ?")
			args = append(args, value)
		}
	}
	setCols = append(setCols, schema.UpdatedAtColumn+" = ?")
	args = append(args, formatTimestamp(*group.timestamp), existing.id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		entity.Name, strings.Join(setCols, ", "), schema.IDColumn)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return r.groupFailure(group, outcome,
			errors.WrapError(err, fmt.Sprintf("failed to update %s row", entity.Name)))
	}

	r.countUpdate(group, outcome)
	return nil
}

// groupFailure converts a statement error into a group rejection in
// degraded mode, where prior autocommit statements cannot be unwound, and
// propagates it otherwise so the transaction rolls back
func (r *Reconciler) groupFailure(group *entityGroup, outcome *Outcome, err error) error {
	if !outcome.Degraded {
		return err
	}
	outcome.Rejects = append(outcome.Rejects, Reject{
		Key:        group.key,
		Reason:     fmt.Sprintf("apply failed: %v", err),
		Provenance: group.provenance,
	})
	r.countReject(group, outcome)
	return nil
}

func (r *Reconciler) countReject(group *entityGroup, outcome *Outcome) {
	outcome.Counts.RejectedInvalid++
	if group.entity != nil {
		counts := outcome.EntityCounts[group.entity.Name]
		counts.RejectedInvalid++
		outcome.EntityCounts[group.entity.Name] = counts
	}
}

func (r *Reconciler) countSkip(group *entityGroup, outcome *Outcome) {
	outcome.Counts.SkippedDuplicate++
	counts := outcome.EntityCounts[group.entity.Name]
	counts.SkippedDuplicate++
	outcome.EntityCounts[group.entity.Name] = counts
}

func (r *Reconciler) countUpdate(group *entityGroup, outcome *Outcome) {
	outcome.Counts.Updated++
	counts := outcome.EntityCounts[group.entity.Name]
	counts.Updated++
	outcome.EntityCounts[group.entity.Name] = counts
}

func (r *Reconciler) naturalKeyOf(group *entityGroup) string {
	parts := make([]string, 0, len(group.entity.NaturalKey)+1)
	parts = append(parts, group.entity.Name)
	for _, name := range group.entity.NaturalKey {
		parts = append(parts, fmt.Sprintf("%v", group.values[name]))
	}
	return strings.Join(parts, "\x1f")
}

func (r *Reconciler) stampFor(group *entityGroup) time.Time {
	if group.timestamp != nil {
		return *group.timestamp
	}
	return r.clock()
}

// formatTimestamp renders updated_at values. Nano precision keeps a
// re-imported timestamp equal to the stored one instead of newer.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func normalizeScanned(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func isEmptyValue(v interface{}) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case int64:
		return value == 0
	case float64:
		return value == 0
	case []byte:
		return len(value) == 0
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

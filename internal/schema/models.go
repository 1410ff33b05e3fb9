// Package schema defines the canonical inventory data model: the six
// entity tables, their natural keys, and the DDL that creates them on
// either supported engine.
package schema

import (
	"fmt"
)

// FieldKind classifies how a column's values are typed and coerced
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldInteger FieldKind = "integer"
	FieldNumeric FieldKind = "numeric"
)

// Field describes one data column of an entity table
type Field struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
}

// Entity describes one canonical inventory table. NaturalKey lists the
// columns whose combined values identify a row. Dependent entities
// reference products and branches by name, not by surrogate ID, so a
// natural key survives dump and restore unchanged.
type Entity struct {
	Name       string   `json:"name"`
	Fields     []Field  `json:"fields"`
	NaturalKey []string `json:"natural_key"`
}

// IDColumn is the surrogate primary key every entity table carries
const IDColumn = "id"

// UpdatedAtColumn holds the RFC3339 timestamp used for last-write-wins
// conflict resolution during imports
const UpdatedAtColumn = "updated_at"

// entities lists the canonical tables in dependency order: branches and
// products first, then the tables that reference them by name
var entities = []*Entity{
	{
		Name: "branches",
		Fields: []Field{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "location", Kind: FieldText},
			{Name: "manager", Kind: FieldText},
			{Name: "phone", Kind: FieldText},
		},
		NaturalKey: []string{"name"},
	},
	{
		Name: "products",
		Fields: []Field{
			{Name: "name", Kind: FieldText, Required: true},
			{Name: "category", Kind: FieldText},
			{Name: "price", Kind: FieldNumeric},
			{Name: "cost", Kind: FieldNumeric},
			{Name: "measurement_unit", Kind: FieldText},
			{Name: "barcode", Kind: FieldText},
		},
		NaturalKey: []string{"name"},
	},
	{
		Name: "inventory",
		Fields: []Field{
			{Name: "product", Kind: FieldText, Required: true},
			{Name: "branch", Kind: FieldText, Required: true},
			{Name: "quantity", Kind: FieldInteger},
			{Name: "month", Kind: FieldInteger},
			{Name: "year", Kind: FieldInteger},
		},
		NaturalKey: []string{"product", "branch", "month", "year"},
	},
	{
		Name: "waste",
		Fields: []Field{
			{Name: "product", Kind: FieldText, Required: true},
			{Name: "branch", Kind: FieldText, Required: true},
			{Name: "quantity", Kind: FieldNumeric},
			{Name: "reason", Kind: FieldText},
			{Name: "date", Kind: FieldText},
		},
		NaturalKey: []string{"product", "branch", "date", "reason"},
	},
	{
		Name: "purchases",
		Fields: []Field{
			{Name: "product", Kind: FieldText, Required: true},
			{Name: "branch", Kind: FieldText, Required: true},
			{Name: "quantity", Kind: FieldNumeric},
			{Name: "unit_cost", Kind: FieldNumeric},
			{Name: "supplier", Kind: FieldText},
			{Name: "date", Kind: FieldText},
		},
		NaturalKey: []string{"product", "branch", "date", "supplier"},
	},
	{
		Name: "invoices",
		Fields: []Field{
			{Name: "number", Kind: FieldText, Required: true},
			{Name: "branch", Kind: FieldText},
			{Name: "total", Kind: FieldNumeric},
			{Name: "customer", Kind: FieldText},
			{Name: "date", Kind: FieldText},
		},
		NaturalKey: []string{"number"},
	},
}

// Entities returns the canonical entity tables in dependency order
func Entities() []*Entity {
	return entities
}

// EntityByName looks up an entity by its table name
func EntityByName(name string) (*Entity, bool) {
	for _, e := range entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// TableNames returns all entity table names in dependency order
func TableNames() []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names
}

// Field looks up a data column by name
func (e *Entity) Field(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the entity's data columns in DDL order, without
// the surrogate ID or the updated_at timestamp
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// AllColumns returns every column of the entity's table in DDL order:
// id, the data columns, then updated_at
func (e *Entity) AllColumns() []string {
	columns := make([]string, 0, len(e.Fields)+2)
	columns = append(columns, IDColumn)
	columns = append(columns, e.ColumnNames()...)
	columns = append(columns, UpdatedAtColumn)
	return columns
}

// IsNaturalKeyField reports whether the named column is part of the
// entity's natural key
func (e *Entity) IsNaturalKeyField(name string) bool {
	for _, k := range e.NaturalKey {
		if k == name {
			return true
		}
	}
	return false
}

// RequiredFields returns the names of fields that must be present and
// non-empty for a row to be valid
func (e *Entity) RequiredFields() []string {
	var required []string
	for _, f := range e.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return required
}

// Validate checks the entity definition for structural consistency
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity name cannot be empty")
	}

	if len(e.Fields) == 0 {
		return fmt.Errorf("entity %s has no fields", e.Name)
	}

	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s has a field with an empty name", e.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s declares field %s twice", e.Name, f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case FieldText, FieldInteger, FieldNumeric:
		default:
			return fmt.Errorf("entity %s field %s has invalid kind %q", e.Name, f.Name, f.Kind)
		}
	}

	if len(e.NaturalKey) == 0 {
		return fmt.Errorf("entity %s has no natural key", e.Name)
	}

	for _, k := range e.NaturalKey {
		if !seen[k] {
			return fmt.Errorf("entity %s natural key references unknown field %s", e.Name, k)
		}
	}

	return nil
}

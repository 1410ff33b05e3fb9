package migration

import (
	"fmt"
	"strings"

	"inventory-vault/internal/schema"
)

// Entry maps one key-path pattern onto a canonical entity column. A "*"
// pattern segment matches any single path segment, which is how the
// instance identifier in "products.p1.name" is skipped over. Kind, when
// set, overrides the schema's column kind for coercion.
type Entry struct {
	Pattern string           `json:"pattern" yaml:"pattern"`
	Entity  string           `json:"entity" yaml:"entity"`
	Field   string           `json:"field" yaml:"field"`
	Kind    schema.FieldKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Resolution is the target a key resolved to
type Resolution struct {
	Entity string
	Field  string
	Kind   schema.FieldKind
}

// Mapping is an ordered lookup table from legacy key paths to canonical
// columns. Earlier entries win, so aliases and overrides go in front of
// the generated defaults.
type Mapping struct {
	entries []Entry
}

// NewMapping builds a mapping from explicit entries. Every entry must
// name a canonical entity; field names are checked at apply time so a
// mapping can be built before the schema rows it targets exist.
func NewMapping(entries []Entry) (*Mapping, error) {
	for i, entry := range entries {
		if entry.Pattern == "" {
			return nil, fmt.Errorf("mapping entry %d has an empty pattern", i)
		}
		if entry.Field == "" {
			return nil, fmt.Errorf("mapping entry %d (%s) has an empty field", i, entry.Pattern)
		}
		if _, ok := schema.EntityByName(entry.Entity); !ok {
			return nil, fmt.Errorf("mapping entry %d (%s) targets unknown entity %q", i, entry.Pattern, entry.Entity)
		}
		if entry.Kind != "" {
			switch entry.Kind {
			case schema.FieldText, schema.FieldInteger, schema.FieldNumeric:
			default:
				return nil, fmt.Errorf("mapping entry %d (%s) has invalid kind %q", i, entry.Pattern, entry.Kind)
			}
		}
	}
	return &Mapping{entries: entries}, nil
}

// DefaultMapping covers the canonical entities: every data column under
// "<entity>.*.<column>", the updated_at marker each entity may carry, and
// the "qty" shorthand legacy exports use for quantity columns.
func DefaultMapping() *Mapping {
	var entries []Entry
	for _, e := range schema.Entities() {
		if _, ok := e.Field("quantity"); ok {
			entries = append(entries, Entry{
				Pattern: e.Name + ".*.qty",
				Entity:  e.Name,
				Field:   "quantity",
			})
		}
		for _, f := range e.Fields {
			entries = append(entries, Entry{
				Pattern: e.Name + ".*." + f.Name,
				Entity:  e.Name,
				Field:   f.Name,
			})
		}
		entries = append(entries, Entry{
			Pattern: e.Name + ".*." + schema.UpdatedAtColumn,
			Entity:  e.Name,
			Field:   schema.UpdatedAtColumn,
		})
	}

	mapping, err := NewMapping(entries)
	if err != nil {
		// The generated entries only reference schema-declared names
		panic(fmt.Sprintf("default mapping is invalid: %v", err))
	}
	return mapping
}

// Entries returns the mapping's entries in resolution order
func (m *Mapping) Entries() []Entry {
	return m.entries
}

// Resolve finds the first entry whose pattern matches key and returns the
// target column with its coercion kind
func (m *Mapping) Resolve(key string) (Resolution, bool) {
	for _, entry := range m.entries {
		if !matchPattern(entry.Pattern, key) {
			continue
		}
		return Resolution{
			Entity: entry.Entity,
			Field:  entry.Field,
			Kind:   resolveKind(entry),
		}, true
	}
	return Resolution{}, false
}

func resolveKind(entry Entry) schema.FieldKind {
	if entry.Kind != "" {
		return entry.Kind
	}
	if entity, ok := schema.EntityByName(entry.Entity); ok {
		if field, ok := entity.Field(entry.Field); ok {
			return field.Kind
		}
	}
	return schema.FieldText
}

func matchPattern(pattern, key string) bool {
	patternSegs := strings.Split(pattern, ".")
	keySegs := strings.Split(key, ".")
	if len(patternSegs) != len(keySegs) {
		return false
	}
	for i, seg := range patternSegs {
		if seg != "*" && seg != keySegs[i] {
			return false
		}
	}
	return true
}

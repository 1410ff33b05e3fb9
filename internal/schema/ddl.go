package schema

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavor DDL is generated for
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// CreateTableSQL generates the CREATE TABLE statement for one entity.
// Every table gets a surrogate integer primary key, the entity's data
// columns, an updated_at timestamp, and a unique constraint over the
// natural key.
func CreateTableSQL(e *Entity, dialect Dialect) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", e.Name)

	switch dialect {
	case DialectMySQL:
		b.WriteString("\tid BIGINT NOT NULL AUTO_INCREMENT,\n")
	default:
		b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	}

	for _, f := range e.Fields {
		fmt.Fprintf(&b, "\t%s %s", f.Name, columnType(f.Kind, dialect))
		if f.Required {
			b.WriteString(" NOT NULL")
		}
		b.WriteString(",\n")
	}

	// updated_at is stored as an RFC3339 string on both engines so dumps
	// are byte-identical regardless of which engine produced them
	fmt.Fprintf(&b, "\t%s %s NOT NULL", UpdatedAtColumn, timestampType(dialect))

	switch dialect {
	case DialectMySQL:
		b.WriteString(",\n\tPRIMARY KEY (id)")
		fmt.Fprintf(&b, ",\n\tUNIQUE KEY uq_%s (%s)", e.Name, strings.Join(e.NaturalKey, ", "))
		b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	default:
		fmt.Fprintf(&b, ",\n\tUNIQUE (%s)", strings.Join(e.NaturalKey, ", "))
		b.WriteString("\n)")
	}

	return b.String()
}

// CreateSchemaSQL generates the CREATE TABLE statements for all entity
// tables in dependency order
func CreateSchemaSQL(dialect Dialect) []string {
	statements := make([]string, 0, len(entities))
	for _, e := range entities {
		statements = append(statements, CreateTableSQL(e, dialect))
	}
	return statements
}

func columnType(kind FieldKind, dialect Dialect) string {
	switch dialect {
	case DialectMySQL:
		switch kind {
		case FieldInteger:
			return "BIGINT"
		case FieldNumeric:
			return "DOUBLE"
		default:
			// VARCHAR keeps natural key columns indexable without a
			// prefix length
			return "VARCHAR(255)"
		}
	default:
		switch kind {
		case FieldInteger:
			return "INTEGER"
		case FieldNumeric:
			return "REAL"
		default:
			return "TEXT"
		}
	}
}

func timestampType(dialect Dialect) string {
	if dialect == DialectMySQL {
		return "VARCHAR(64)"
	}
	return "TEXT"
}

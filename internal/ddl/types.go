// Package ddl holds the dialect-neutral table model the SQL backends render
// into CREATE TABLE statements.
package ddl

import "songwarehouse/internal/schema"

// ColumnDef describes a single column.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef describes a table. FQN may be schema-qualified ("analytics.songs").
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromTable derives a TableDef named fqn from a warehouse table, mapping
// column types with mapType. The primary key is declared only for tables
// whose key is unique by construction; key columns are NOT NULL either way.
func FromTable(t schema.Table, fqn string, mapType func(schema.ColumnType) string) TableDef {
	cols := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnDef{
			Name:       c.Name,
			SQLType:    mapType(c.Type),
			Nullable:   c.Nullable && !c.PrimaryKey,
			PrimaryKey: c.PrimaryKey && t.UniqueKey,
		}
	}
	return TableDef{FQN: fqn, Columns: cols}
}

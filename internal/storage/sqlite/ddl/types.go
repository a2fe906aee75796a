package ddl

import "songwarehouse/internal/schema"

// MapType returns the SQLite type of a warehouse column type.
// Both integer widths share the INTEGER affinity.
func MapType(ct schema.ColumnType) string {
	switch ct {
	case schema.TypeInt:
		return "INTEGER"
	case schema.TypeBigint:
		return "INTEGER"
	case schema.TypeDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

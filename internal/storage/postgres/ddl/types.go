package ddl

import "songwarehouse/internal/schema"

// MapType returns the Postgres type of a warehouse column type.
func MapType(ct schema.ColumnType) string {
	switch ct {
	case schema.TypeInt:
		return "INTEGER"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeDouble:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

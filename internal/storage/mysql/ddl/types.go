package ddl

import "songwarehouse/internal/schema"

// MapType returns the MySQL type of a warehouse column type.
// TEXT cannot carry a PRIMARY KEY without a prefix length; the warehouse
// only declares numeric keys.
func MapType(ct schema.ColumnType) string {
	switch ct {
	case schema.TypeInt:
		return "INT"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeDouble:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

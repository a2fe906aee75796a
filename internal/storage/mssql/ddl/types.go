package ddl

import "songwarehouse/internal/schema"

// MapType returns the SQL Server type of a warehouse column type.
// Text columns are NVARCHAR(MAX); none of them is declared as a key.
func MapType(ct schema.ColumnType) string {
	switch ct {
	case schema.TypeInt:
		return "INT"
	case schema.TypeBigint:
		return "BIGINT"
	case schema.TypeDouble:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}

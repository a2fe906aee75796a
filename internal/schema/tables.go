package schema

import "fmt"

// ColumnType is the logical, dialect-free type of a warehouse column.
type ColumnType string

const (
	TypeText   ColumnType = "text"
	TypeInt    ColumnType = "int"
	TypeBigint ColumnType = "bigint"
	TypeDouble ColumnType = "double"
)

// Column describes one warehouse column.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	Nullable   bool
}

// Table describes a warehouse table: its logical name, the directory it is
// written to under the output root, its columns in row order and the columns
// it is partitioned by.
//
// UniqueKey is set when the primary key column is unique by construction.
// The dimensions de-duplicate whole rows, so their keys may repeat.
type Table struct {
	Name        string
	Dir         string
	Columns     []Column
	PartitionBy []string
	UniqueKey   bool
}

var (
	Songs = Table{
		Name: "songs",
		Dir:  "songs",
		Columns: []Column{
			{Name: "song_id", Type: TypeText, PrimaryKey: true},
			{Name: "title", Type: TypeText, Nullable: true},
			{Name: "artist_id", Type: TypeText, Nullable: true},
			{Name: "year", Type: TypeBigint, Nullable: true},
			{Name: "duration", Type: TypeDouble, Nullable: true},
		},
	}

	// Artists is written to "artist/", the directory name downstream
	// queries already use.
	Artists = Table{
		Name: "artists",
		Dir:  "artist",
		Columns: []Column{
			{Name: "artist_id", Type: TypeText, PrimaryKey: true},
			{Name: "name", Type: TypeText, Nullable: true},
			{Name: "location", Type: TypeText, Nullable: true},
			{Name: "latitude", Type: TypeDouble, Nullable: true},
			{Name: "longitude", Type: TypeDouble, Nullable: true},
		},
	}

	Users = Table{
		Name: "users",
		Dir:  "users",
		Columns: []Column{
			{Name: "user_id", Type: TypeText, PrimaryKey: true},
			{Name: "first_name", Type: TypeText, Nullable: true},
			{Name: "last_name", Type: TypeText, Nullable: true},
			{Name: "gender", Type: TypeText, Nullable: true},
			{Name: "level", Type: TypeText, Nullable: true},
		},
	}

	Time = Table{
		Name: "time",
		Dir:  "time",
		Columns: []Column{
			{Name: "ts", Type: TypeBigint, PrimaryKey: true},
			{Name: "start_time", Type: TypeBigint},
			{Name: "hour", Type: TypeInt},
			{Name: "day", Type: TypeInt},
			{Name: "week", Type: TypeInt},
			{Name: "month", Type: TypeInt},
			{Name: "year", Type: TypeInt},
			{Name: "weekday", Type: TypeText},
		},
		PartitionBy: []string{"year", "month"},
		UniqueKey:   true,
	}

	Songplays = Table{
		Name: "songplays",
		Dir:  "songplays",
		Columns: []Column{
			{Name: "songplay_id", Type: TypeBigint, PrimaryKey: true},
			{Name: "start_time", Type: TypeBigint},
			{Name: "user_id", Type: TypeText, Nullable: true},
			{Name: "level", Type: TypeText, Nullable: true},
			{Name: "song_id", Type: TypeText, Nullable: true},
			{Name: "artist_id", Type: TypeText, Nullable: true},
			{Name: "session_id", Type: TypeBigint, Nullable: true},
			{Name: "location", Type: TypeText, Nullable: true},
			{Name: "user_agent", Type: TypeText, Nullable: true},
			{Name: "year", Type: TypeInt},
			{Name: "month", Type: TypeInt},
		},
		PartitionBy: []string{"year", "month"},
		UniqueKey:   true,
	}
)

// Tables returns the warehouse tables in write order.
func Tables() []Table {
	return []Table{Songs, Artists, Users, Time, Songplays}
}

// Lookup returns the table with the given logical name.
func Lookup(name string) (Table, error) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("schema: unknown table %q", name)
}

// ColumnNames returns the column names in row order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Partitioned reports whether the table is written with partition columns.
func (t Table) Partitioned() bool { return len(t.PartitionBy) > 0 }

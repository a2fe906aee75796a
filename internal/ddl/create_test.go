package ddl

import (
	"strings"
	"testing"

	"songwarehouse/internal/schema"
)

// TestBuildCreateTableSQL covers the unquoted renderer: validation errors,
// nullability, defaults and the PRIMARY KEY clause in column order.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		def     TableDef
		want    string
		wantErr string
	}{
		{
			name:    "empty name",
			def:     TableDef{FQN: " ", Columns: []ColumnDef{{Name: "ts", SQLType: "BIGINT"}}},
			wantErr: "FQN must not be empty",
		},
		{
			name:    "no columns",
			def:     TableDef{FQN: "time"},
			wantErr: "at least one column",
		},
		{
			name:    "blank column name",
			def:     TableDef{FQN: "time", Columns: []ColumnDef{{Name: " ", SQLType: "BIGINT"}}},
			wantErr: "empty name",
		},
		{
			name:    "missing type",
			def:     TableDef{FQN: "time", Columns: []ColumnDef{{Name: "ts"}}},
			wantErr: "missing SQLType",
		},
		{
			name: "nullable and required columns",
			def: TableDef{FQN: "users", Columns: []ColumnDef{
				{Name: "user_id", SQLType: "TEXT"},
				{Name: "level", SQLType: "TEXT", Nullable: true, Default: "'free'"},
			}},
			want: "CREATE TABLE users (\n  user_id TEXT NOT NULL,\n  level TEXT DEFAULT 'free'\n);",
		},
		{
			name: "composite key keeps column order",
			def: TableDef{FQN: "dw.plays", Columns: []ColumnDef{
				{Name: "session_id", SQLType: "BIGINT", PrimaryKey: true, Nullable: true},
				{Name: "item", SQLType: "INT", PrimaryKey: true},
			}},
			want: "CREATE TABLE dw.plays (\n  session_id BIGINT NOT NULL,\n  item INT NOT NULL,\n  PRIMARY KEY (session_id, item)\n);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestRender_QuoteAndWrap(t *testing.T) {
	t.Parallel()

	d := Dialect{
		Name:  "test ddl",
		Quote: func(s string) string { return "`" + s + "`" },
		Wrap: func(fqn, body string) string {
			return "CREATE TABLE IF NOT EXISTS " + fqn + " (" + strings.ReplaceAll(body, "\n  ", " ") + ")"
		},
	}
	got, err := Render(TableDef{
		FQN:     "analytics..songs",
		Columns: []ColumnDef{{Name: "song_id", SQLType: "TEXT", PrimaryKey: true, Nullable: true}},
	}, d)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `analytics`.`songs` (`song_id` TEXT NOT NULL, PRIMARY KEY (`song_id`))"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}

	if _, err := Render(TableDef{}, d); err == nil || !strings.HasPrefix(err.Error(), "test ddl:") {
		t.Fatalf("Render() error = %v, want prefix %q", err, "test ddl:")
	}
}

// TestFromTable verifies the warehouse schema mapping: key columns are never
// nullable, and a PRIMARY KEY is only declared for tables whose key is unique
// by construction.
func TestFromTable(t *testing.T) {
	t.Parallel()

	mapType := func(ct schema.ColumnType) string { return strings.ToUpper(string(ct)) }

	songs := FromTable(schema.Songs, "songs", mapType)
	if len(songs.Columns) != len(schema.Songs.Columns) {
		t.Fatalf("columns = %d, want %d", len(songs.Columns), len(schema.Songs.Columns))
	}
	if c := songs.Columns[0]; c.Name != "song_id" || c.Nullable || c.PrimaryKey || c.SQLType != "TEXT" {
		t.Fatalf("songs key column = %+v", c)
	}
	if c := songs.Columns[4]; c.Name != "duration" || !c.Nullable || c.SQLType != "DOUBLE" {
		t.Fatalf("songs duration column = %+v", c)
	}

	plays := FromTable(schema.Songplays, "p.songplays", mapType)
	if plays.FQN != "p.songplays" {
		t.Fatalf("FQN = %q", plays.FQN)
	}
	if c := plays.Columns[0]; c.Name != "songplay_id" || !c.PrimaryKey || c.SQLType != "BIGINT" {
		t.Fatalf("songplays key column = %+v", c)
	}
	if c := plays.Columns[len(plays.Columns)-1]; c.Name != "month" || c.Nullable {
		t.Fatalf("songplays month column = %+v", c)
	}
}

var benchmarkSink string

func BenchmarkRender_Songplays(b *testing.B) {
	mapType := func(ct schema.ColumnType) string { return strings.ToUpper(string(ct)) }
	def := FromTable(schema.Songplays, "analytics.songplays", mapType)
	d := Dialect{Name: "bench", Quote: func(s string) string { return `"` + s + `"` }}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := Render(def, d)
		if err != nil {
			b.Fatalf("Render() error = %v", err)
		}
		benchmarkSink = sql
	}
}

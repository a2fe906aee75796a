package ddl

import (
	"strings"
	"testing"

	gddl "songwarehouse/internal/ddl"
	"songwarehouse/internal/schema"
)

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"songs", "`songs`"},
		{"dw.songs", "`dw`.`songs`"},
		{"we`ird", "`we``ird`"},
	}
	for _, tc := range cases {
		if got := quoteFQN(tc.in); got != tc.want {
			t.Fatalf("quoteFQN(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildCreateTableSQLBasic(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(gddl.TableDef{
		FQN: "dw.users",
		Columns: []gddl.ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "name", SQLType: "TEXT", Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL() error = %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `dw`.`users` (\n" +
		"  `id` BIGINT NOT NULL,\n" +
		"  `name` TEXT,\n" +
		"  PRIMARY KEY (`id`)\n" +
		") DEFAULT CHARSET=utf8mb4;"
	if got != want {
		t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, want)
	}

	if _, err := BuildCreateTableSQL(gddl.TableDef{FQN: "t"}); err == nil || !strings.Contains(err.Error(), "mysql ddl") {
		t.Fatalf("expected mysql ddl error, got %v", err)
	}
}

func TestCreateTableSQLWarehouse(t *testing.T) {
	t.Parallel()

	got, err := CreateTableSQL(schema.Time, "time")
	if err != nil {
		t.Fatalf("CreateTableSQL() error = %v", err)
	}
	for _, want := range []string{
		"`ts` BIGINT NOT NULL,",
		"`hour` INT NOT NULL,",
		"`weekday` TEXT NOT NULL,",
		"PRIMARY KEY (`ts`)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("SQL missing %q:\n%s", want, got)
		}
	}

	got, err = CreateTableSQL(schema.Artists, "artists")
	if err != nil {
		t.Fatalf("CreateTableSQL() error = %v", err)
	}
	if strings.Contains(got, "PRIMARY KEY") || !strings.Contains(got, "`latitude` DOUBLE,") {
		t.Fatalf("unexpected artists DDL:\n%s", got)
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	cases := map[schema.ColumnType]string{
		schema.TypeText:   "TEXT",
		schema.TypeInt:    "INT",
		schema.TypeBigint: "BIGINT",
		schema.TypeDouble: "DOUBLE",
		"blob":            "TEXT",
	}
	for in, want := range cases {
		if got := MapType(in); got != want {
			t.Fatalf("MapType(%q) = %q; want %q", in, got, want)
		}
	}
}

// Package ddl renders SQLite DDL for the warehouse tables.
//
// The builder uses double-quoted identifiers, emits CREATE TABLE IF NOT
// EXISTS and renders PRIMARY KEY as a separate table constraint.
package ddl

import (
	"fmt"
	"strings"

	gddl "songwarehouse/internal/ddl"
	"songwarehouse/internal/schema"
)

var dialect = gddl.Dialect{
	Name:  "sqlite ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
}

// BuildCreateTableSQL returns a SQLite CREATE TABLE statement for t. A dotted
// FQN ("main.events") has each segment quoted.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) { return gddl.Render(t, dialect) }

// FromTable maps a warehouse table onto SQLite type affinities.
func FromTable(t schema.Table, fqn string) gddl.TableDef {
	return gddl.FromTable(t, fqn, MapType)
}

// CreateTableSQL renders the DDL of t under the name fqn.
func CreateTableSQL(t schema.Table, fqn string) (string, error) {
	return BuildCreateTableSQL(FromTable(t, fqn))
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, quoteIdent) }

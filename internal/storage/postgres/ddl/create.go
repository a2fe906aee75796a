// Package ddl renders Postgres DDL for the warehouse tables.
package ddl

import (
	"fmt"
	"strings"

	gddl "songwarehouse/internal/ddl"
	"songwarehouse/internal/schema"
)

var dialect = gddl.Dialect{
	Name:  "postgres ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
}

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS
// statement with every identifier double-quoted.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) { return gddl.Render(t, dialect) }

// FromTable maps a warehouse table onto Postgres types.
func FromTable(t schema.Table, fqn string) gddl.TableDef {
	return gddl.FromTable(t, fqn, MapType)
}

// CreateTableSQL renders the DDL of t under the name fqn.
func CreateTableSQL(t schema.Table, fqn string) (string, error) {
	return BuildCreateTableSQL(FromTable(t, fqn))
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func quoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, quoteIdent) }

// Package ddl renders MySQL DDL for the warehouse tables.
package ddl

import (
	"fmt"
	"strings"

	gddl "songwarehouse/internal/ddl"
	"songwarehouse/internal/schema"
)

var dialect = gddl.Dialect{
	Name:  "mysql ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) DEFAULT CHARSET=utf8mb4;", fqn, body)
	},
}

// BuildCreateTableSQL returns a MySQL CREATE TABLE IF NOT EXISTS statement
// with backtick-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) { return gddl.Render(t, dialect) }

// FromTable maps a warehouse table onto MySQL types.
func FromTable(t schema.Table, fqn string) gddl.TableDef {
	return gddl.FromTable(t, fqn, MapType)
}

// CreateTableSQL renders the DDL of t under the name fqn.
func CreateTableSQL(t schema.Table, fqn string) (string, error) {
	return BuildCreateTableSQL(FromTable(t, fqn))
}

func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func quoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, quoteIdent) }

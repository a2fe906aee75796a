// Package ddl renders SQL Server DDL for the warehouse tables.
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL guard. Identifiers use [bracket] quoting.
package ddl

import (
	"fmt"
	"strings"

	gddl "songwarehouse/internal/ddl"
	"songwarehouse/internal/schema"
)

var dialect = gddl.Dialect{
	Name:  "mssql ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			fqn, fqn, strings.ReplaceAll(body, "\n  ", "\n    "),
		)
	},
}

// BuildCreateTableSQL returns a guarded T-SQL CREATE TABLE script:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE NOT NULL,
//	    PRIMARY KEY ([col1])
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) { return gddl.Render(t, dialect) }

// FromTable maps a warehouse table onto SQL Server types.
func FromTable(t schema.Table, fqn string) gddl.TableDef {
	return gddl.FromTable(t, fqn, MapType)
}

// CreateTableSQL renders the DDL of t under the name fqn.
func CreateTableSQL(t schema.Table, fqn string) (string, error) {
	return BuildCreateTableSQL(FromTable(t, fqn))
}

// quoteIdent quotes a single identifier segment using bracket syntax,
// escaping closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func quoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, quoteIdent) }

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"songwarehouse/internal/schema"
	"songwarehouse/internal/storage"
)

type tablesFlags struct {
	kind   string
	schema string
	prefix string
}

func newTablesCommand(_ *globals, stdout, _ io.Writer) *cobra.Command {
	var f tablesFlags
	cmd := &cobra.Command{
		Use:   "tables [table...]",
		Short: "print the warehouse tables as CREATE TABLE statements",
		RunE: func(_ *cobra.Command, args []string) error {
			tables := schema.Tables()
			if len(args) > 0 {
				tables = tables[:0]
				for _, name := range args {
					t, err := schema.Lookup(name)
					if err != nil {
						return err
					}
					tables = append(tables, t)
				}
			}
			return printDDL(stdout, f, tables)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.kind, "kind", "postgres", "SQL dialect: "+strings.Join(storage.DDLKinds(), ", "))
	fl.StringVar(&f.schema, "schema", "", "schema qualifying every table")
	fl.StringVar(&f.prefix, "table-prefix", "", "prefix of every table name")
	return cmd
}

func printDDL(w io.Writer, f tablesFlags, tables []schema.Table) error {
	names := storage.NewMirror(nil, storage.MirrorOptions{Kind: f.kind, Schema: f.schema, TablePrefix: f.prefix}, nil)
	for i, t := range tables {
		sql, err := storage.CreateTableSQL(f.kind, t, names.TableName(t))
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s (%s/)\n%s\n", t.Name, t.Dir, strings.TrimSpace(sql))
	}
	return nil
}

func init() {
	subcommandFns["tables"] = newTablesCommand
}

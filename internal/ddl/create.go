package ddl

import (
	"fmt"
	"strings"
)

// Dialect renders identifiers and wraps the statement for one SQL flavor.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string

	// Quote quotes a single identifier segment. Nil leaves names as given.
	Quote func(string) string

	// Wrap turns the quoted table name and the column list into the final
	// statement. Nil renders a plain CREATE TABLE.
	Wrap func(fqn, body string) string
}

// BuildCreateTableSQL renders t without quoting:
//
//	CREATE TABLE t (
//	  id INT NOT NULL,
//	  PRIMARY KEY (id)
//	);
func BuildCreateTableSQL(t TableDef) (string, error) {
	return Render(t, Dialect{Name: "ddl"})
}

// Render validates t and renders it for d.
func Render(t TableDef, d Dialect) (string, error) {
	quote := d.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}

		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	name := QuoteFQN(fqn, quote)
	body := strings.Join(cols, ",\n  ")
	if d.Wrap != nil {
		return d.Wrap(name, body), nil
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", name, body), nil
}

// QuoteFQN quotes each non-empty dot-separated segment of fqn.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

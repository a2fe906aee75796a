// Package mysql implements the warehouse mirror on MySQL using
// go-sql-driver/mysql. Rows are written with multi-row INSERT statements
// inside one transaction per batch; RENAME TABLE swaps the staging table in.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// maxPlaceholders is the server's limit on bound parameters per statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	// DSN uses the go-sql-driver format, e.g.
	// "user:pass@tcp(localhost:3306)/warehouse?parseTime=true".
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the pool, verifies the connection and returns a
// Repository plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts rows into table with multi-row INSERT statements sized to
// stay under the placeholder limit, all inside one transaction.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	per := maxPlaceholders / len(columns)
	var total int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("mysql: CopyFrom: row %d length %d != columns length %d", start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(table, columns, len(chunk)), args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// DropTable drops table if it exists.
func (r *Repository) DropTable(ctx context.Context, table string) error {
	_, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+myFQN(table))
	return err
}

// SwapTable moves staging into place. MySQL DDL commits implicitly, so the
// exchange uses a single multi-table RENAME TABLE, which the server applies
// atomically; the previous table is dropped afterwards.
func (r *Repository) SwapTable(ctx context.Context, staging, table string) error {
	exists, err := r.exists(ctx, table)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", table, err)
	}
	if !exists {
		if _, err := r.db.ExecContext(ctx, renameSQL(staging, table, "")); err != nil {
			return fmt.Errorf("rename %s: %w", staging, err)
		}
		return nil
	}
	old := staging + "_old"
	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+myFQN(old)); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	if _, err := r.db.ExecContext(ctx, renameSQL(staging, table, old)); err != nil {
		return fmt.Errorf("rename %s: %w", staging, err)
	}
	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+myFQN(old)); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, table string) (bool, error) {
	schemaExpr, name := "DATABASE()", table
	args := []any{}
	if i := strings.LastIndex(table, "."); i >= 0 {
		schemaExpr, name = "?", table[i+1:]
		args = append(args, table[:i])
	}
	args = append(args, name)
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = %s AND table_name = ?", schemaExpr)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// insertSQL renders INSERT INTO table (cols) VALUES (?, ...), ... for n rows.
func insertSQL(table string, columns []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", myFQN(table), strings.Join(mapIdent(columns), ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// renameSQL moves staging to table. When old is set, table is moved aside to
// old in the same statement.
func renameSQL(staging, table, old string) string {
	if old == "" {
		return fmt.Sprintf("RENAME TABLE %s TO %s", myFQN(staging), myFQN(table))
	}
	return fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", myFQN(table), myFQN(old), myFQN(staging), myFQN(table))
}

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, myIdent(p))
		}
	}
	return strings.Join(out, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}

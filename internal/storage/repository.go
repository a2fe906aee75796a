// Package storage mirrors warehouse tables into a SQL database. Backends
// (postgres, sqlite, mssql, mysql) register a Factory and a DDL builder for
// their kind at init time; callers depend only on this package.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the set of primitives a SQL backend provides. Table names
// are unquoted and may be schema-qualified ("analytics.songs"); backends
// quote them.
type Repository interface {
	// CopyFrom bulk-inserts rows (aligned with columns) into table and
	// returns the number of rows written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// DropTable drops table if it exists.
	DropTable(ctx context.Context, table string) error

	// SwapTable replaces table with staging inside one transaction. staging
	// no longer exists afterwards; table need not exist before.
	SwapTable(ctx context.Context, staging, table string) error

	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "postgres".
	Kind string

	// DSN is passed to the backend driver.
	DSN string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. It is typically
// called from backend packages' init() functions.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository with the Factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"songwarehouse/internal/schema"
)

// DDLBuilder renders the CREATE TABLE statement of a warehouse table under
// the name fqn for one backend.
type DDLBuilder func(t schema.Table, fqn string) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDLBuilder for a storage kind. It
// is typically called from backend packages' init() functions.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// DDLKinds returns the kinds with a registered DDLBuilder, sorted.
func DDLKinds() []string {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	out := make([]string, 0, len(ddlFns))
	for k := range ddlFns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CreateTableSQL renders t as fqn for kind without touching a database.
func CreateTableSQL(kind string, t schema.Table, fqn string) (string, error) {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	return fn(t, fqn)
}

// EnsureTable creates fqn with the layout of t through repo.
func EnsureTable(ctx context.Context, kind string, repo Repository, t schema.Table, fqn string) error {
	sql, err := CreateTableSQL(kind, t, fqn)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply DDL for %s: %w", fqn, err)
	}
	return nil
}

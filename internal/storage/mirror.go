package storage

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songwarehouse/internal/metrics"
	"songwarehouse/internal/schema"
)

// DefaultBatchSize is used when MirrorOptions.BatchSize is not positive.
const DefaultBatchSize = 5000

// MirrorOptions configures table naming and batching.
type MirrorOptions struct {
	// Kind is the backend kind the repository was opened with; it selects
	// the DDL dialect.
	Kind string

	// Schema optionally qualifies every table ("analytics").
	Schema string

	// TablePrefix is prepended to every table name.
	TablePrefix string

	BatchSize int

	// RunID makes staging table names unique per run.
	RunID string

	// Job labels the emitted metrics.
	Job string
}

// Valuer is implemented by the warehouse row types.
type Valuer interface{ Values() []any }

// Rows flattens typed rows into column-aligned value slices.
func Rows[T Valuer](in []T) [][]any {
	out := make([][]any, len(in))
	for i, r := range in {
		out[i] = r.Values()
	}
	return out
}

// Mirror replaces warehouse tables in a SQL database.
type Mirror struct {
	repo Repository
	opt  MirrorOptions
	log  *zap.Logger
}

// NewMirror returns a Mirror writing through repo.
func NewMirror(repo Repository, opt MirrorOptions, log *zap.Logger) *Mirror {
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{repo: repo, opt: opt, log: log}
}

// TableName returns the (unquoted) name a warehouse table is mirrored to.
func (m *Mirror) TableName(t schema.Table) string {
	name := m.opt.TablePrefix + t.Name
	if m.opt.Schema != "" {
		return m.opt.Schema + "." + name
	}
	return name
}

// StagingName returns the staging table used for t during this run.
func (m *Mirror) StagingName(t schema.Table) string {
	tag := strings.ReplaceAll(m.opt.RunID, "-", "")
	if len(tag) > 8 {
		tag = tag[:8]
	}
	if tag == "" {
		tag = "run"
	}
	return m.TableName(t) + "__stg_" + tag
}

// ReplaceTable loads rows into a fresh staging table and swaps it in for
// the live table. A failure drops the staging table and leaves the live
// table untouched.
func (m *Mirror) ReplaceTable(ctx context.Context, t schema.Table, rows [][]any) (n int64, err error) {
	start := time.Now()
	target, staging := m.TableName(t), m.StagingName(t)
	log := m.log.With(zap.String("table", target))

	defer func() {
		if err != nil {
			if derr := m.repo.DropTable(context.WithoutCancel(ctx), staging); derr != nil {
				log.Warn("storage: drop staging table failed", zap.String("staging", staging), zap.Error(derr))
			}
			err = fmt.Errorf("storage: replace %s: %w", target, err)
		}
		metrics.RecordStep(m.opt.Job, "mirror_"+t.Name, err, time.Since(start))
	}()

	if err = m.repo.DropTable(ctx, staging); err != nil {
		return 0, err
	}
	if err = EnsureTable(ctx, m.opt.Kind, m.repo, t, staging); err != nil {
		return 0, err
	}

	copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
		n, err := m.repo.CopyFrom(ctx, staging, columns, batch)
		if err == nil {
			metrics.RecordBatches(m.opt.Job, 1)
		}
		return n, err
	}

	columns := t.ColumnNames()
	pool := NewRowPool(len(columns))
	in := make(chan *Row, m.opt.BatchSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(in)
		for i, vals := range rows {
			if len(vals) != len(columns) {
				return fmt.Errorf("row %d has %d values, want %d", i, len(vals), len(columns))
			}
			r := pool.Get()
			plainInto(r.V, vals)
			select {
			case in <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		var lerr error
		n, lerr = LoadBatchesRows(gctx, log, columns, in, m.opt.BatchSize, copyFn)
		return lerr
	})
	if err = g.Wait(); err != nil {
		return n, err
	}

	if err = m.repo.SwapTable(ctx, staging, target); err != nil {
		return n, err
	}
	metrics.RecordRow(m.opt.Job, "mirrored", n)
	log.Info("storage: table mirrored", zap.Int64("rows", n), zap.Duration("took", time.Since(start)))
	return n, nil
}

// plainInto resolves driver.Valuer wrappers (sql.NullString and friends)
// from row into dst so every backend receives nil or a basic Go value.
func plainInto(dst, row []any) {
	for i, v := range row {
		if dv, ok := v.(driver.Valuer); ok {
			val, err := dv.Value()
			if err == nil {
				dst[i] = val
				continue
			}
		}
		dst[i] = v
	}
}

// TableRows pairs a warehouse table with its flattened rows.
type TableRows struct {
	Table schema.Table
	Rows  [][]any
}

// ReplaceAll replaces the tables one after another and returns the rows
// loaded per table name. It stops at the first failure; tables replaced
// before it stay replaced.
func (m *Mirror) ReplaceAll(ctx context.Context, tables []TableRows) (map[string]int64, error) {
	out := make(map[string]int64, len(tables))
	for _, tr := range tables {
		n, err := m.ReplaceTable(ctx, tr.Table, tr.Rows)
		if err != nil {
			return out, err
		}
		out[tr.Table.Name] = n
	}
	return out, nil
}

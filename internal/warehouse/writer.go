// Package warehouse persists the five warehouse tables as Parquet under an
// output store. Each table is written to a staging tree, described by a
// _SUCCESS manifest and then swapped into place, so a reader sees either the
// previous table or the complete new one.
//
// Layout under the output root:
//
//	songs/part-00000.parquet
//	artist/part-00000.parquet
//	users/part-00000.parquet
//	time/year=2018/month=11/part-00000.parquet
//	songplays/year=2018/month=11/part-00000.parquet
package warehouse

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songwarehouse/internal/datasource"
	"songwarehouse/internal/metrics"
	"songwarehouse/internal/schema"
	"songwarehouse/internal/tracing"
)

const (
	DefaultRowGroupSize = 100_000
	DefaultWorkers      = 5

	fileName = "part-00000.parquet"
)

// Options controls the file encoding and write concurrency.
type Options struct {
	// Compression is "snappy" (default), "zstd", "gzip" or "none".
	Compression  string
	RowGroupSize int
	Workers      int

	// Job labels the emitted metrics.
	Job string
}

// Tables holds the rows of one run.
type Tables struct {
	Songs     []schema.SongDim
	Artists   []schema.ArtistDim
	Users     []schema.UserDim
	Time      []schema.TimeDim
	Songplays []schema.SongplayFact
}

// Writer writes tables for a single run.
type Writer struct {
	store datasource.Store
	runID string
	opt   Options
	codec compress.Codec
	log   *zap.Logger
}

// New returns a Writer for runID. It fails on an unknown compression name.
func New(store datasource.Store, runID string, opt Options, log *zap.Logger) (*Writer, error) {
	if opt.Compression == "" {
		opt.Compression = "snappy"
	}
	codec, err := Codec(opt.Compression)
	if err != nil {
		return nil, err
	}
	if opt.RowGroupSize <= 0 {
		opt.RowGroupSize = DefaultRowGroupSize
	}
	if opt.Workers <= 0 {
		opt.Workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{store: store, runID: runID, opt: opt, codec: codec, log: log}, nil
}

// Codec maps a compression name to its Parquet codec.
func Codec(name string) (compress.Codec, error) {
	switch name {
	case "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "none":
		return &parquet.Uncompressed, nil
	}
	return nil, fmt.Errorf("warehouse: unknown compression %q", name)
}

// Write persists rows as table. rows must be the slice type of the table's
// dimension or fact ([]schema.SongDim for schema.Songs and so on).
func (w *Writer) Write(ctx context.Context, table schema.Table, rows any) (Manifest, error) {
	switch r := rows.(type) {
	case []schema.SongDim:
		if table.Name == schema.Songs.Name {
			return write(ctx, w, table, r, songRow, nil)
		}
	case []schema.ArtistDim:
		if table.Name == schema.Artists.Name {
			return write(ctx, w, table, r, artistRow, nil)
		}
	case []schema.UserDim:
		if table.Name == schema.Users.Name {
			return write(ctx, w, table, r, userRow, nil)
		}
	case []schema.TimeDim:
		if table.Name == schema.Time.Name {
			return write(ctx, w, table, r, timeRow, func(t schema.TimeDim) partition {
				return partition{t.Year, t.Month}
			})
		}
	case []schema.SongplayFact:
		if table.Name == schema.Songplays.Name {
			return write(ctx, w, table, r, songplayRow, func(f schema.SongplayFact) partition {
				return partition{f.Year, f.Month}
			})
		}
	}
	return Manifest{}, fmt.Errorf("warehouse: write %s: unexpected rows %T", table.Name, rows)
}

// WriteAll writes the five tables concurrently and returns their manifests
// in schema.Tables order. The first failure cancels the remaining writes;
// tables already swapped stay published.
func (w *Writer) WriteAll(ctx context.Context, t Tables) ([]Manifest, error) {
	inputs := map[string]any{
		schema.Songs.Name:     t.Songs,
		schema.Artists.Name:   t.Artists,
		schema.Users.Name:     t.Users,
		schema.Time.Name:      t.Time,
		schema.Songplays.Name: t.Songplays,
	}
	tables := schema.Tables()
	out := make([]Manifest, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opt.Workers)
	for i, table := range tables {
		g.Go(func() error {
			m, err := w.Write(gctx, table, inputs[table.Name])
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Cleanup removes whatever this run left under the staging root.
func (w *Writer) Cleanup(ctx context.Context) error {
	if err := w.store.RemoveAll(ctx, "_staging/"+w.runID); err != nil {
		return fmt.Errorf("warehouse: cleanup %s: %w", w.runID, err)
	}
	return nil
}

type partition struct{ year, month int }

func (p partition) dir() string { return fmt.Sprintf("year=%d/month=%d", p.year, p.month) }

type group[T any] struct {
	dir  string
	rows []T
}

// partitionRows splits rows by key, ordered by (year, month); rows keep
// their input order inside a partition. A nil key yields one unpartitioned
// group.
func partitionRows[T any](rows []T, key func(T) partition) []group[T] {
	if len(rows) == 0 {
		return nil
	}
	if key == nil {
		return []group[T]{{rows: rows}}
	}
	idx := map[partition]int{}
	var keys []partition
	var groups []group[T]
	for _, r := range rows {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			keys = append(keys, k)
			groups = append(groups, group[T]{dir: k.dir()})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka.year != kb.year {
			return ka.year < kb.year
		}
		return ka.month < kb.month
	})
	out := make([]group[T], len(groups))
	for i, o := range order {
		out[i] = groups[o]
	}
	return out
}

func write[T, R any](ctx context.Context, w *Writer, table schema.Table, rows []T, conv func(T) R, key func(T) partition) (m Manifest, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "warehouse.write", attribute.String("table", table.Name), attribute.Int("rows", len(rows)))
	staging := datasource.StagingDir(w.runID, table.Dir)
	defer func() {
		if err != nil {
			if rerr := w.store.RemoveAll(context.WithoutCancel(ctx), staging); rerr != nil {
				w.log.Warn("warehouse: staging cleanup failed", zap.String("table", table.Name), zap.Error(rerr))
			}
			err = fmt.Errorf("warehouse: write %s: %w", table.Name, err)
		}
		tracing.End(span, err)
		metrics.RecordStep(w.opt.Job, "write_"+table.Name, err, time.Since(start))
	}()

	if err = w.store.RemoveAll(ctx, staging); err != nil {
		return Manifest{}, err
	}

	m = Manifest{
		RunID:       w.runID,
		Table:       table.Name,
		Dir:         table.Dir,
		PartitionBy: table.PartitionBy,
		Compression: w.opt.Compression,
		Files:       []FileEntry{},
	}
	for _, g := range partitionRows(rows, key) {
		out := make([]R, len(g.rows))
		for i, r := range g.rows {
			out[i] = conv(r)
		}
		name := path.Join(g.dir, fileName)
		var fe FileEntry
		if fe, err = writeFile(ctx, w, path.Join(staging, name), out); err != nil {
			return Manifest{}, err
		}
		fe.Path = name
		m.Files = append(m.Files, fe)
		m.Rows += fe.Rows
		m.Bytes += fe.Bytes
		w.log.Debug("warehouse: file staged",
			zap.String("table", table.Name),
			zap.String("path", name),
			zap.Int64("rows", fe.Rows),
			zap.String("size", humanize.Bytes(uint64(fe.Bytes))))
	}

	if err = writeManifest(ctx, w.store, staging, m); err != nil {
		return Manifest{}, err
	}
	if err = w.store.Swap(ctx, staging, table.Dir); err != nil {
		return Manifest{}, err
	}

	metrics.RecordTable(w.opt.Job, table.Name, m.Rows, m.Bytes)
	w.log.Info("warehouse: successfully created "+table.Name+" table",
		zap.String("dir", table.Dir),
		zap.Int64("rows", m.Rows),
		zap.Int("files", len(m.Files)),
		zap.String("size", humanize.Bytes(uint64(m.Bytes))),
		zap.Duration("took", time.Since(start)))
	return m, nil
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// writeFile encodes rows into name, flushing a row group every
// RowGroupSize rows, and returns the file's size and digest.
func writeFile[R any](ctx context.Context, w *Writer, name string, rows []R) (FileEntry, error) {
	f, err := w.store.Create(ctx, name)
	if err != nil {
		return FileEntry{}, err
	}
	h := xxh3.New()
	cw := &countingWriter{}
	pw := parquet.NewGenericWriter[R](io.MultiWriter(f, h, cw), parquet.Compression(w.codec))

	fail := func(err error) (FileEntry, error) {
		_ = datasource.Abort(f, err)
		return FileEntry{}, fmt.Errorf("%s: %w", name, err)
	}
	for lo := 0; lo < len(rows); lo += w.opt.RowGroupSize {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		hi := min(lo+w.opt.RowGroupSize, len(rows))
		if _, err := pw.Write(rows[lo:hi]); err != nil {
			return fail(err)
		}
		if err := pw.Flush(); err != nil {
			return fail(err)
		}
	}
	if err := pw.Close(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return FileEntry{}, fmt.Errorf("%s: %w", name, err)
	}
	return FileEntry{Rows: int64(len(rows)), Bytes: cw.n, XXH3: digest(h.Sum64())}, nil
}

func digest(sum uint64) string { return fmt.Sprintf("%016x", sum) }

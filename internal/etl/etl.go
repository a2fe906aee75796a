// Package etl runs one warehouse build end to end: it reads the catalog and
// event trees, derives the five tables, publishes them to the output store
// and optionally mirrors them into a SQL database.
//
// The stages are wired through an ExecContext that the CLI builds once and
// passes by pointer; nothing in this package reads global configuration.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songwarehouse/internal/datasource"
	jsonparser "songwarehouse/internal/parser/json"
	"songwarehouse/internal/schema"
	"songwarehouse/internal/storage"
	"songwarehouse/internal/tracing"
	"songwarehouse/internal/transformer"
	"songwarehouse/internal/warehouse"
)

const (
	DefaultSongPattern   = "song-data/*/*/*/*.json"
	DefaultLogPattern    = "log-data/*.json"
	DefaultReaderWorkers = 8

	// firstErrors bounds the malformed-record messages kept for the summary.
	firstErrors = 3
)

// Options are the knobs of a run.
type Options struct {
	// Job labels metrics and spans.
	Job string

	SongPattern string
	LogPattern  string
	Parser      jsonparser.Options

	// PlayPage is the page value that marks a song play.
	PlayPage string

	// Location is the zone the time dimension is derived in. Nil means UTC.
	Location *time.Location

	// KeepUnmatchedSongs selects the left fact join.
	KeepUnmatchedSongs bool

	ReaderWorkers int
	Writer        warehouse.Options
}

// ExecContext carries everything a run needs. Mirror is optional.
type ExecContext struct {
	Input  datasource.Store
	Output datasource.Store
	Mirror *storage.Mirror
	Log    *zap.Logger
	RunID  string
	Opt    Options
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Summary describes a finished run.
type Summary struct {
	RunID        string
	CatalogFiles int
	LogFiles     int
	Catalog      jsonparser.Stats
	Events       jsonparser.Stats
	Plays        int
	Join         transformer.JoinStats
	Tables       []warehouse.Manifest
	Mirrored     map[string]int64
	Duration     time.Duration
}

type catalogOut struct {
	recs    []schema.CatalogRecord
	songs   []schema.SongDim
	artists []schema.ArtistDim
}

type eventsOut struct {
	users []schema.UserDim
	times []schema.TimeDim
	plays []schema.EventRecord
}

// Run executes the build. Any stage failure cancels the others and is
// returned; tables already published by a failed run stay complete because
// each table is swapped in as a whole.
func Run(ctx context.Context, ec *ExecContext) (sum Summary, err error) {
	if ec.Input == nil || ec.Output == nil {
		return Summary{}, fmt.Errorf("etl: input and output stores are required")
	}
	ec.defaults()
	start := time.Now()
	log := ec.Log.With(zap.String("run_id", ec.RunID))
	sum = Summary{RunID: ec.RunID}

	ctx, span := tracing.Start(ctx, "etl.run",
		attribute.String("run_id", ec.RunID),
		attribute.String("input", ec.Input.String()),
		attribute.String("output", ec.Output.String()))
	defer func() { tracing.End(span, err) }()

	log.Info("etl: run started",
		zap.String("input", ec.Input.String()),
		zap.String("output", ec.Output.String()),
		zap.Int("reader_workers", ec.Opt.ReaderWorkers))

	malformed := newErrAgg(firstErrors)
	var cat catalogOut
	var ev eventsOut

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, files, st, err := readCatalog(gctx, ec, malformed)
		if err != nil {
			return err
		}
		sum.CatalogFiles, sum.Catalog = files, st
		cat = extractCatalog(gctx, ec, recs)
		return nil
	})
	g.Go(func() error {
		recs, files, st, err := readEvents(gctx, ec, malformed)
		if err != nil {
			return err
		}
		sum.LogFiles, sum.Events = files, st
		ev = extractEvents(gctx, ec, recs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return sum, err
	}
	sum.Plays = len(ev.plays)

	facts, js := buildSongplays(ctx, ec, ev, cat)
	sum.Join = js

	tables := warehouse.Tables{
		Songs:     cat.songs,
		Artists:   cat.artists,
		Users:     ev.users,
		Time:      ev.times,
		Songplays: facts,
	}
	w, err := warehouse.New(ec.Output, ec.RunID, ec.Opt.Writer, log.Named("warehouse"))
	if err != nil {
		return sum, err
	}
	sum.Tables, err = w.WriteAll(ctx, tables)
	if cerr := w.Cleanup(context.WithoutCancel(ctx)); cerr != nil {
		log.Warn("etl: staging cleanup failed", zap.Error(cerr))
	}
	if err != nil {
		return sum, err
	}

	if ec.Mirror != nil {
		sum.Mirrored, err = ec.Mirror.ReplaceAll(ctx, []storage.TableRows{
			{Table: schema.Songs, Rows: storage.Rows(tables.Songs)},
			{Table: schema.Artists, Rows: storage.Rows(tables.Artists)},
			{Table: schema.Users, Rows: storage.Rows(tables.Users)},
			{Table: schema.Time, Rows: storage.Rows(tables.Time)},
			{Table: schema.Songplays, Rows: storage.Rows(tables.Songplays)},
		})
		if err != nil {
			return sum, err
		}
	}

	sum.Duration = time.Since(start)
	logSummary(log, sum, malformed)
	return sum, nil
}

func (ec *ExecContext) defaults() {
	if ec.Log == nil {
		ec.Log = zap.NewNop()
	}
	if ec.RunID == "" {
		ec.RunID = NewRunID()
	}
	o := &ec.Opt
	if o.Job == "" {
		o.Job = "songplays"
	}
	if o.SongPattern == "" {
		o.SongPattern = DefaultSongPattern
	}
	if o.LogPattern == "" {
		o.LogPattern = DefaultLogPattern
	}
	if o.PlayPage == "" {
		o.PlayPage = schema.PlayPage
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.ReaderWorkers <= 0 {
		o.ReaderWorkers = DefaultReaderWorkers
	}
	if o.Writer.Job == "" {
		o.Writer.Job = o.Job
	}
}

func logSummary(log *zap.Logger, s Summary, malformed *errAgg) {
	if n := malformed.total(); n > 0 {
		first := malformed.firstN()
		log.Warn("etl: malformed records skipped", zap.Int("count", n), zap.Int("shown", len(first)))
		for i, msg := range first {
			log.Warn(fmt.Sprintf("  #%03d: %s", i+1, msg))
		}
	}
	fields := []zap.Field{
		zap.Int("catalog_files", s.CatalogFiles),
		zap.Int("log_files", s.LogFiles),
		zap.Int("catalog_records", s.Catalog.Records),
		zap.Int("events", s.Events.Records),
		zap.Int("malformed", s.Catalog.Malformed+s.Events.Malformed),
		zap.Int("plays", s.Plays),
		zap.Int("no_song_match", s.Join.NoSongMatch),
		zap.Int("no_time_match", s.Join.NoTimeMatch),
	}
	for _, m := range s.Tables {
		fields = append(fields, zap.Int64(m.Table, m.Rows))
	}
	if s.Mirrored != nil {
		fields = append(fields, zap.Int("mirrored_tables", len(s.Mirrored)))
	}
	fields = append(fields, zap.Duration("duration", s.Duration))
	log.Info("etl: summary", fields...)
}

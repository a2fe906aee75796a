package etl

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songwarehouse/internal/metrics"
	jsonparser "songwarehouse/internal/parser/json"
	"songwarehouse/internal/schema"
	"songwarehouse/internal/tracing"
)

type decodeFn[T any] func(ctx context.Context, r io.Reader, name string, opt jsonparser.Options, onMalformed func(*jsonparser.MalformedError)) ([]T, jsonparser.Stats, error)

func readCatalog(ctx context.Context, ec *ExecContext, agg *errAgg) ([]schema.CatalogRecord, int, jsonparser.Stats, error) {
	recs, files, st, err := readTree(ctx, ec, "catalog", ec.Opt.SongPattern, jsonparser.DecodeCatalog, agg)
	metrics.RecordRow(ec.Opt.Job, "catalog_read", int64(st.Records))
	return recs, files, st, err
}

func readEvents(ctx context.Context, ec *ExecContext, agg *errAgg) ([]schema.EventRecord, int, jsonparser.Stats, error) {
	recs, files, st, err := readTree(ctx, ec, "events", ec.Opt.LogPattern, jsonparser.DecodeEvents, agg)
	metrics.RecordRow(ec.Opt.Job, "events_read", int64(st.Records))
	return recs, files, st, err
}

// readTree decodes every file matching pattern with at most ReaderWorkers
// files in flight. Records are concatenated in sorted path order, so the
// result does not depend on scheduling.
func readTree[T any](ctx context.Context, ec *ExecContext, what, pattern string, decode decodeFn[T], agg *errAgg) (out []T, files int, st jsonparser.Stats, err error) {
	start := time.Now()
	step := "read_" + what
	log := ec.Log.Named(what)
	ctx, span := tracing.Start(ctx, "etl."+step, attribute.String("pattern", pattern))
	defer func() {
		tracing.End(span, err)
		metrics.RecordStep(ec.Opt.Job, step, err, time.Since(start))
	}()

	names, err := ec.Input.Glob(ctx, pattern)
	if err != nil {
		return nil, 0, st, fmt.Errorf("etl: %s: %w", step, err)
	}
	if len(names) == 0 {
		log.Warn("etl: no input files matched", zap.String("pattern", pattern), zap.String("input", ec.Input.String()))
		return nil, 0, st, nil
	}

	parts := make([][]T, len(names))
	stats := make([]jsonparser.Stats, len(names))
	onMalformed := func(me *jsonparser.MalformedError) {
		agg.add(me.Error())
		metrics.RecordRow(ec.Opt.Job, "malformed", 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ec.Opt.ReaderWorkers)
	for i, name := range names {
		g.Go(func() error {
			rc, err := ec.Input.Open(gctx, name)
			if err != nil {
				return err
			}
			defer rc.Close()
			recs, s, err := decode(gctx, rc, name, ec.Opt.Parser, onMalformed)
			if err != nil {
				return err
			}
			parts[i], stats[i] = recs, s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, len(names), st, fmt.Errorf("etl: %s: %w", step, err)
	}

	n := 0
	for i := range parts {
		n += len(parts[i])
		st = st.Add(stats[i])
	}
	out = make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	log.Info("etl: input read",
		zap.Int("files", len(names)),
		zap.Int("records", st.Records),
		zap.Int("malformed", st.Malformed),
		zap.Duration("took", time.Since(start)))
	return out, len(names), st, nil
}

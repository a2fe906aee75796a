package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songwarehouse/internal/config"
	"songwarehouse/internal/datasource"
	"songwarehouse/internal/etl"
	"songwarehouse/internal/notify"
	jsonparser "songwarehouse/internal/parser/json"
	"songwarehouse/internal/runlock"
	"songwarehouse/internal/storage"
	"songwarehouse/internal/warehouse"

	// register every store scheme and SQL backend; the pipeline picks one
	// at run time.
	_ "songwarehouse/internal/datasource/all"
	_ "songwarehouse/internal/storage/all"
)

// publisher is the part of notify.Publisher the run uses.
type publisher interface {
	Publish(ctx context.Context, ev notify.WarehouseRefreshed) error
	Close() error
}

// Test hooks.
var (
	dialLock   = runlock.Dial
	dialNotify = func(url, queue string, log *zap.Logger) (publisher, error) {
		return notify.Dial(url, queue, log)
	}
)

// execute runs one warehouse build for p. The returned summary is partial
// when err is non-nil.
func execute(ctx context.Context, p config.Pipeline, log *zap.Logger) (sum etl.Summary, err error) {
	if p.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Runtime.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	runID := etl.NewRunID()
	log = log.With(zap.String("job", p.Job))

	if p.Lock.Kind == "redis" {
		release, err := holdLock(ctx, cancel, p, log)
		if err != nil {
			return sum, err
		}
		defer release()
	}

	in, err := datasource.Open(ctx, p.Input.URL)
	if err != nil {
		return sum, fmt.Errorf("open input: %w", err)
	}
	out, err := datasource.Open(ctx, p.Output.URL)
	if err != nil {
		return sum, fmt.Errorf("open output: %w", err)
	}

	var mirror *storage.Mirror
	if kind := p.Storage.Kind; kind != "" && kind != "none" {
		repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: p.Storage.DB.DSN})
		if err != nil {
			return sum, fmt.Errorf("open storage.kind=%s: %w", kind, err)
		}
		defer repo.Close()
		mirror = storage.NewMirror(repo, mirrorOptions(p, runID), log.Named("mirror"))
	}

	opt, err := runOptions(p)
	if err != nil {
		return sum, err
	}
	sum, err = etl.Run(ctx, &etl.ExecContext{
		Input:  in,
		Output: out,
		Mirror: mirror,
		Log:    log,
		RunID:  runID,
		Opt:    opt,
	})
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && cause != ctx.Err() {
			return sum, fmt.Errorf("%w (%v)", err, cause)
		}
		return sum, err
	}

	if p.Notify.Kind == "amqp" {
		announce(ctx, p, sum, log)
	}
	return sum, nil
}

// runOptions maps the pipeline file onto the run knobs.
func runOptions(p config.Pipeline) (etl.Options, error) {
	loc, err := time.LoadLocation(p.Transform.TimeZone)
	if err != nil {
		return etl.Options{}, fmt.Errorf("transform.time_zone: %w", err)
	}
	return etl.Options{
		Job:                p.Job,
		SongPattern:        p.Input.SongPattern,
		LogPattern:         p.Input.LogPattern,
		Parser:             jsonparser.FromConfigOptions(p.Parser.Options),
		PlayPage:           p.Transform.PlayPage,
		Location:           loc,
		KeepUnmatchedSongs: p.Transform.FactJoin == "left",
		ReaderWorkers:      p.Runtime.ReaderWorkers,
		Writer: warehouse.Options{
			Compression:  p.Output.Compression,
			RowGroupSize: p.Output.RowGroupSize,
			Workers:      p.Runtime.WriterWorkers,
			Job:          p.Job,
		},
	}, nil
}

func mirrorOptions(p config.Pipeline, runID string) storage.MirrorOptions {
	return storage.MirrorOptions{
		Kind:        p.Storage.Kind,
		Schema:      p.Storage.DB.Schema,
		TablePrefix: p.Storage.DB.TablePrefix,
		BatchSize:   p.Runtime.BatchSize,
		RunID:       runID,
		Job:         p.Job,
	}
}

// holdLock takes the output lock and keeps extending it until the returned
// release func runs. Losing the lock cancels the run.
func holdLock(ctx context.Context, cancel context.CancelCauseFunc, p config.Pipeline, log *zap.Logger) (func(), error) {
	locker, closeFn, err := dialLock(ctx, runlock.Options{Addr: p.Lock.Addr, Password: p.Lock.Password, DB: p.Lock.DB})
	if err != nil {
		return nil, err
	}
	lk, err := locker.Acquire(ctx, p.Output.URL, p.Lock.TTL)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	log.Info("run lock acquired", zap.String("key", lk.Key()), zap.Duration("ttl", p.Lock.TTL))

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(max(p.Lock.TTL/3, time.Second))
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := lk.Extend(ctx, p.Lock.TTL); err != nil {
					log.Error("run lock lost; aborting", zap.Error(err))
					cancel(err)
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("run lock release failed", zap.Error(err))
		}
		_ = closeFn()
	}, nil
}

// announce publishes the refresh event. The tables are already published,
// so a failure is logged and does not fail the run.
func announce(ctx context.Context, p config.Pipeline, sum etl.Summary, log *zap.Logger) {
	pub, err := dialNotify(p.Notify.URL, p.Notify.Queue, log.Named("notify"))
	if err != nil {
		log.Error("notify: broker unavailable; refresh event not sent", zap.Error(err))
		return
	}
	defer pub.Close()
	ev := notify.NewEvent(sum.RunID, p.Job, p.Output.URL, sum.Tables, time.Now())
	if err := pub.Publish(ctx, ev); err != nil {
		log.Error("notify: refresh event not sent", zap.Error(err))
	}
}

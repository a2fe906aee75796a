package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CopyFn bulk-inserts one batch of rows aligned with columns and returns the
// number of rows written. Backends implement it with their fastest primitive
// (COPY, bulk copy, multi-row INSERT).
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatchesRows drains in into batches of batchSize rows and hands each
// non-empty batch to copyFn. Every flushed row is freed after copyFn
// returns, so copyFn must not retain the slices. It returns the rows
// reported by copyFn and the first error; a canceled ctx returns ctx.Err().
// log may be nil.
func LoadBatchesRows(ctx context.Context, log *zap.Logger, columns []string, in <-chan *Row, batchSize int, copyFn CopyFn) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("storage: batch size must be positive")
	}
	if copyFn == nil {
		return 0, errors.New("storage: nil copy func")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		total   int64
		batches int
		batch   = make([]*Row, 0, batchSize)
		slab    = make([][]any, 0, batchSize)
		start   = time.Now()
		last    = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		slab = slab[:0]
		for _, r := range batch {
			slab = append(slab, r.V)
		}
		n, err := copyFn(ctx, columns, slab)
		total += n
		for _, r := range batch {
			r.Free()
		}
		batch = batch[:0]
		if err != nil {
			log.Warn("storage: batch failed", zap.Int("batch", batches+1), zap.Int64("rows", n), zap.Int64("total", total), zap.Error(err))
			return err
		}
		batches++
		now := time.Now()
		rate := 0.0
		if d := now.Sub(last); d > 0 {
			rate = float64(n) / d.Seconds()
		}
		last = now
		log.Debug("storage: batch loaded",
			zap.Int("batch", batches),
			zap.Int64("rows", n),
			zap.Int64("total", total),
			zap.Float64("rows_per_sec", rate),
			zap.Duration("elapsed", now.Sub(start).Truncate(time.Millisecond)))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics of a warehouse run.
//
//   - Backend is a narrow interface of counters and timing data.
//   - The package-level backend defaults to a no-op, so instrumentation is
//     always safe to call when no metrics system is configured.
//   - Concrete systems live in subpackages (prompush, datadog) and are
//     installed once by the CLI with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal      = "songplays_step_total"
	StepDuration   = "songplays_step_duration_seconds"
	RecordsTotal   = "songplays_records_total"
	TableRowsTotal = "songplays_table_rows_total"
	TableBytes     = "songplays_table_bytes"
	MirrorBatches  = "songplays_mirror_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/size style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one run step
// ("read_catalog", "extract_events", "write_songs", ...).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter for the given job and kind.
//
// Kinds used by the run:
//   - "catalog_read", "events_read", "malformed"
//   - "plays", "join_mismatch_song", "join_mismatch_time"
//   - "mirrored"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordTable records a published warehouse table.
func RecordTable(job, table string, rows, bytes int64) {
	b := current()
	lbls := Labels{"job": job, "table": table}
	if rows > 0 {
		b.IncCounter(TableRowsTotal, float64(rows), lbls)
	}
	b.ObserveHistogram(TableBytes, float64(bytes), lbls)
}

// RecordBatches increments the SQL mirror batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(MirrorBatches, float64(delta), Labels{"job": job})
}

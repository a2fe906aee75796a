package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songwarehouse/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("songplays", "")
	require.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "songplays", b.JobName())

	b, err = NewBackend("nightly", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "nightly", b.JobName())
}

func TestBackend_RoutesByName(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("songplays", "http://unused")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "write_time", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "malformed"})
	b.IncCounter(metrics.TableRowsTotal, 12, metrics.Labels{"table": "time"})
	b.IncCounter(metrics.MirrorBatches, 2, nil)
	b.IncCounter("unknown_metric", 99, nil)
	b.ObserveHistogram(metrics.TableBytes, 2048, metrics.Labels{"table": "time"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "write_time", "status": "success"})

	assert.Equal(t, 1.0, testutil.ToFloat64(b.stepCounter.WithLabelValues("write_time", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(b.recordCounter.WithLabelValues("malformed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(b.tableRows.WithLabelValues("time")))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.batchCounter))
	assert.Equal(t, 2048.0, testutil.ToFloat64(b.tableBytes.WithLabelValues("time")))
	assert.Equal(t, 1, testutil.CollectAndCount(b.stepDuration))
}

func TestBackend_FlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
		body  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		body = string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("songplays", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": "events_read"})
	require.NoError(t, b.Flush())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "PUT /metrics/job/songplays", paths[0])
	assert.NotEmpty(t, body)
}

func TestBackend_FlushError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("songplays", srv.URL)
	require.NoError(t, err)
	err = b.Flush()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "prompush: push to "))
}

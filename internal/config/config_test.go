package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestLoad_JSONOverridesDefaults(t *testing.T) {
	const js = `{
	  "job": "nightly",
	  "input":  { "url": "s3://udacity-dend/" },
	  "output": { "url": "/data/warehouse", "compression": "zstd" },
	  "parser": { "kind": "ndjson", "options": { "on_malformed": "abort", "max_line_bytes": 2048 } },
	  "transform": { "time_zone": "Europe/Prague", "fact_join": "left" },
	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://u@h/db", "schema": "analytics" } },
	  "runtime": { "reader_workers": 2, "timeout": "15m" },
	  "lock": { "kind": "redis", "addr": "redis:6379", "ttl": "30m" }
	}`

	p, err := Load(writeFile(t, "pipeline.json", js))
	require.NoError(t, err)

	assert.Equal(t, "nightly", p.Job)
	assert.Equal(t, "s3://udacity-dend/", p.Input.URL)
	assert.Equal(t, "song-data/*/*/*/*.json", p.Input.SongPattern, "default pattern kept")
	assert.Equal(t, "log-data/*.json", p.Input.LogPattern)
	assert.Equal(t, "zstd", p.Output.Compression)
	assert.Equal(t, "abort", p.Parser.Options.String("on_malformed", "skip"))
	assert.Equal(t, 2048, p.Parser.Options.Int("max_line_bytes", 0))
	assert.Equal(t, "Europe/Prague", p.Transform.TimeZone)
	assert.Equal(t, "NextSong", p.Transform.PlayPage)
	assert.Equal(t, "left", p.Transform.FactJoin)
	assert.Equal(t, "analytics", p.Storage.DB.Schema)
	assert.Equal(t, 2, p.Runtime.ReaderWorkers)
	assert.Equal(t, 5, p.Runtime.WriterWorkers)
	assert.Equal(t, 15*time.Minute, p.Runtime.Timeout)
	assert.Equal(t, 30*time.Minute, p.Lock.TTL)
	assert.Equal(t, "warehouse.refreshed", p.Notify.Queue)
}

func TestLoad_YAML(t *testing.T) {
	const y = `
job: yaml-job
input:
  url: ./data
output:
  url: ./out
`
	p, err := Load(writeFile(t, "pipeline.yaml", y))
	require.NoError(t, err)
	assert.Equal(t, "yaml-job", p.Job)
	assert.Equal(t, "./data", p.Input.URL)
	assert.Equal(t, "./out", p.Output.URL)
	assert.Equal(t, "UTC", p.Transform.TimeZone)
	assert.NotNil(t, p.Parser.Options)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SONGPLAYS_OUTPUT_URL", "gs://bucket/warehouse")
	t.Setenv("SONGPLAYS_RUNTIME_READER_WORKERS", "3")

	p, err := Load(writeFile(t, "pipeline.json", `{"input":{"url":"./data"},"output":{"url":"./out"}}`))
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/warehouse", p.Output.URL)
	assert.Equal(t, 3, p.Runtime.ReaderWorkers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestOptions_TypedAccessors(t *testing.T) {
	t.Parallel()

	o := Options{"s": "x", "b": true, "f": float64(7), "i": 9, "i64": int64(11), "wrong": []any{}}

	assert.Equal(t, "x", o.String("s", "d"))
	assert.Equal(t, "d", o.String("wrong", "d"))
	assert.True(t, o.Bool("b", false))
	assert.False(t, o.Bool("missing", false))
	assert.Equal(t, 7, o.Int("f", 0))
	assert.Equal(t, 9, o.Int("i", 0))
	assert.Equal(t, 11, o.Int("i64", 0))
	assert.Equal(t, 42, o.Int("wrong", 42))
}

// Package config defines the canonical configuration model for a warehouse
// run. A pipeline file (JSON, YAML or TOML) is decoded into Pipeline by Load;
// every key can be overridden from the environment.
//
// Example (trimmed):
//
//	{
//	  "job":    "songplays",
//	  "input":  { "url": "s3://udacity-dend/" },
//	  "output": { "url": "/data/warehouse", "compression": "snappy" },
//	  "parser": { "kind": "ndjson", "options": { "on_malformed": "skip" } },
//	  "transform": { "time_zone": "UTC", "fact_join": "inner" },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://..." } }
//	}
package config

import "time"

// Pipeline describes a complete warehouse run.
type Pipeline struct {
	// Job names the run for metrics, tracing and lock keys.
	Job string `json:"job" mapstructure:"job"`

	// Input is where the song-data and log-data trees live.
	Input Input `json:"input" mapstructure:"input"`

	// Output is the warehouse root the five tables are written under.
	Output Output `json:"output" mapstructure:"output"`

	// Parser configures how raw lines become records.
	Parser Parser `json:"parser" mapstructure:"parser"`

	// Transform carries the knobs of the extraction and join stages.
	Transform Transform `json:"transform" mapstructure:"transform"`

	// Storage optionally mirrors the warehouse tables into a SQL database.
	Storage Storage `json:"storage" mapstructure:"storage"`

	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
	Lock    Lock          `json:"lock" mapstructure:"lock"`
	Notify  Notify        `json:"notify" mapstructure:"notify"`
}

// Input locates the raw sources. URL accepts a local path, file://, s3://
// or gs://; the patterns are relative to it and use path.Match syntax.
type Input struct {
	URL         string `json:"url" mapstructure:"url"`
	SongPattern string `json:"song_pattern" mapstructure:"song_pattern"`
	LogPattern  string `json:"log_pattern" mapstructure:"log_pattern"`
}

// Output locates the warehouse root and controls the file encoding.
type Output struct {
	URL string `json:"url" mapstructure:"url"`

	// Compression is one of "snappy", "zstd", "gzip" or "none".
	Compression string `json:"compression" mapstructure:"compression"`

	// RowGroupSize caps the number of rows buffered per parquet row group.
	RowGroupSize int `json:"row_group_size" mapstructure:"row_group_size"`
}

// Parser selects the record decoder.
type Parser struct {
	// Kind selects the parser implementation. Current value: "ndjson".
	Kind string `json:"kind" mapstructure:"kind"`

	// Options is interpreted by the parser. Keys:
	//   on_malformed (string: "skip" | "abort"), max_line_bytes (int)
	Options Options `json:"options" mapstructure:"options"`
}

// Transform holds the extraction and join settings.
type Transform struct {
	// PlayPage is the log "page" value that marks a song play.
	PlayPage string `json:"play_page" mapstructure:"play_page"`

	// TimeZone is the IANA zone used to derive the time dimension. The host
	// zone is never consulted.
	TimeZone string `json:"time_zone" mapstructure:"time_zone"`

	// FactJoin is "inner" (drop plays without a catalog match) or "left"
	// (keep them with null song_id/artist_id).
	FactJoin string `json:"fact_join" mapstructure:"fact_join"`
}

// Storage selects the optional SQL mirror.
type Storage struct {
	// Kind selects the backend: "postgres", "sqlite", "mssql", "mysql".
	// Empty or "none" disables the mirror.
	Kind string `json:"kind" mapstructure:"kind"`

	DB DBConfig `json:"db" mapstructure:"db"`
}

// DBConfig configures the SQL mirror connection.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn" mapstructure:"dsn"`

	// Schema optionally qualifies table names (e.g. "analytics").
	Schema string `json:"schema" mapstructure:"schema"`

	// TablePrefix is prepended to every mirrored table name.
	TablePrefix string `json:"table_prefix" mapstructure:"table_prefix"`
}

// RuntimeConfig controls concurrency, batching and the run deadline.
type RuntimeConfig struct {
	ReaderWorkers int           `json:"reader_workers" mapstructure:"reader_workers"`
	WriterWorkers int           `json:"writer_workers" mapstructure:"writer_workers"`
	BatchSize     int           `json:"batch_size" mapstructure:"batch_size"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Lock configures the single-writer guard for the output root.
type Lock struct {
	// Kind is "none" or "redis".
	Kind     string        `json:"kind" mapstructure:"kind"`
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"password" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl"`
}

// Notify configures the post-run refresh event.
type Notify struct {
	// Kind is "none" or "amqp".
	Kind  string `json:"kind" mapstructure:"kind"`
	URL   string `json:"url" mapstructure:"url"`
	Queue string `json:"queue" mapstructure:"queue"`
}

// Options is a small helper to fetch typed values from a free-form map. It
// performs only minimal type coercion and returns the provided default when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. Numbers decoded from JSON arrive
// as float64; YAML and env values may arrive as int, int64 or string.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Package config provides configuration models and helpers for warehouse
// runs.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "transform.time_zone"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling, lock keys and identifying runs",
		})
	}
	issues = append(issues, validateInput(p.Input)...)
	issues = append(issues, validateOutput(p.Input, p.Output)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransform(p.Transform)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateLock(p.Lock)...)
	issues = append(issues, validateNotify(p.Notify)...)

	return issues
}

var knownSchemes = []string{"", "file", "s3", "gs", "mem"}

func validateURL(field, raw string) []Issue {
	if strings.TrimSpace(raw) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     field,
			Message:  field + " must not be empty",
		}}
	}
	scheme := ""
	if i := strings.Index(raw, "://"); i > 0 {
		scheme = raw[:i]
	}
	for _, s := range knownSchemes {
		if s == scheme {
			return nil
		}
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     field,
		Message:  fmt.Sprintf("unsupported scheme %q (use a local path, file://, s3:// or gs://)", scheme),
	}}
}

func validatePattern(field, pattern string) []Issue {
	if strings.TrimSpace(pattern) == "" {
		return []Issue{{Severity: SeverityError, Path: field, Message: field + " must not be empty"}}
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return []Issue{{Severity: SeverityError, Path: field, Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}}
	}
	return nil
}

func validateInput(in Input) []Issue {
	var issues []Issue
	issues = append(issues, validateURL("input.url", in.URL)...)
	issues = append(issues, validatePattern("input.song_pattern", in.SongPattern)...)
	issues = append(issues, validatePattern("input.log_pattern", in.LogPattern)...)
	return issues
}

func validateOutput(in Input, out Output) []Issue {
	issues := validateURL("output.url", out.URL)

	if out.URL != "" && strings.TrimRight(out.URL, "/") == strings.TrimRight(in.URL, "/") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.url",
			Message:  "output.url equals input.url; tables will be written next to the raw trees",
		})
	}
	switch strings.ToLower(out.Compression) {
	case "", "snappy", "zstd", "gzip", "none":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.compression",
			Message:  fmt.Sprintf("unknown compression %q (snappy, zstd, gzip, none)", out.Compression),
		})
	}
	if out.RowGroupSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.row_group_size",
			Message:  "row_group_size must not be negative",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch p.Kind {
	case "ndjson", "json":
	case "":
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; only ndjson is supported", p.Kind),
		})
	}

	switch policy := p.Options.String("on_malformed", "skip"); policy {
	case "skip", "abort":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.on_malformed",
			Message:  fmt.Sprintf("unknown policy %q (skip, abort)", policy),
		})
	}
	return issues
}

func validateTransform(t Transform) []Issue {
	var issues []Issue

	if strings.TrimSpace(t.PlayPage) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "transform.play_page",
			Message:  "play_page must not be empty; no event would reach the users, time or songplays tables",
		})
	}
	if _, err := time.LoadLocation(t.TimeZone); err != nil || t.TimeZone == "" || strings.EqualFold(t.TimeZone, "Local") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "transform.time_zone",
			Message:  fmt.Sprintf("time_zone %q must be a fixed IANA zone such as UTC", t.TimeZone),
		})
	}
	switch t.FactJoin {
	case "inner":
	case "left":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "transform.fact_join",
			Message:  "fact_join=left keeps plays without a catalog match; row counts differ from the inner-join output",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "transform.fact_join",
			Message:  fmt.Sprintf("unknown fact_join %q (inner, left)", t.FactJoin),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	switch s.Kind {
	case "", "none":
		return nil
	case "postgres", "sqlite", "mssql", "mysql":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty when a SQL mirror is configured",
		})
	}
	if s.Kind == "sqlite" && s.DB.Schema != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.schema",
			Message:  "sqlite ignores storage.db.schema",
		})
	}
	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, zero-sized batches, etc.).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; non-positive batch sizes fall back to the default", r.BatchSize),
		})
	}
	if r.ReaderWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.reader_workers",
			Message:  "reader_workers must not be negative",
		})
	}
	if r.WriterWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.writer_workers",
			Message:  "writer_workers must not be negative",
		})
	}
	if r.Timeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.timeout",
			Message:  "timeout must not be negative",
		})
	}
	return issues
}

func validateLock(l Lock) []Issue {
	switch l.Kind {
	case "", "none":
		return nil
	case "redis":
		var issues []Issue
		if strings.TrimSpace(l.Addr) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: "lock.addr", Message: "redis lock requires an address"})
		}
		if l.TTL <= 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: "lock.ttl", Message: "redis lock requires a positive ttl"})
		}
		return issues
	default:
		return []Issue{{Severity: SeverityError, Path: "lock.kind", Message: fmt.Sprintf("unknown lock kind %q (none, redis)", l.Kind)}}
	}
}

func validateNotify(n Notify) []Issue {
	switch n.Kind {
	case "", "none":
		return nil
	case "amqp":
		var issues []Issue
		if strings.TrimSpace(n.URL) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: "notify.url", Message: "amqp notify requires a broker url"})
		}
		if strings.TrimSpace(n.Queue) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: "notify.queue", Message: "amqp notify requires a queue name"})
		}
		return issues
	default:
		return []Issue{{Severity: SeverityError, Path: "notify.kind", Message: fmt.Sprintf("unknown notify kind %q (none, amqp)", n.Kind)}}
	}
}

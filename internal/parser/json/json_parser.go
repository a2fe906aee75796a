// Package json decodes the newline-delimited JSON trees the warehouse is
// built from into typed catalog and event records.
//
// It is deliberately simple and conservative:
//
//   - One JSON object per line. Blank lines are ignored.
//   - Field names are matched exactly (case-sensitive), so "userId" and
//     "userid" are different fields.
//   - A line that is not a JSON object, or is longer than max_line_bytes,
//     is a malformed record. The on_malformed policy decides whether it is
//     skipped (and counted) or aborts the read.
//   - A field whose value has an unexpected JSON type becomes null instead of
//     failing the record.
//
// This matches the shape of both raw sources: song-data files carry a single
// catalog object each, log-data files carry one event per line.
package json

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"songwarehouse/internal/config"
)

// Policy selects what happens to a malformed record.
type Policy string

const (
	// PolicySkip drops malformed records and counts them.
	PolicySkip Policy = "skip"
	// PolicyAbort fails the read on the first malformed record.
	PolicyAbort Policy = "abort"
)

// DefaultMaxLineBytes bounds a single line when Options.MaxLineBytes is unset.
const DefaultMaxLineBytes = 1 << 20

var (
	// ErrMalformedRecord is matched by every MalformedError.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrLineTooLong is wrapped by the MalformedError of a line longer than
	// Options.MaxLineBytes.
	ErrLineTooLong = errors.New("line too long")
)

// MalformedError reports a line that could not be decoded as a JSON object.
type MalformedError struct {
	Name string // source file, may be empty
	Line int    // 1-based
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("json: %s:%d: %v: %v", e.Name, e.Line, ErrMalformedRecord, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedRecord) true for every MalformedError.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedRecord }

// Options controls decoding.
type Options struct {
	OnMalformed  Policy
	MaxLineBytes int
}

// FromConfigOptions constructs Options from the parser.options map of the
// pipeline file.
//
//   - "on_malformed" (string): "skip" (default) or "abort"
//   - "max_line_bytes" (int): longest accepted line, default 1 MiB
func FromConfigOptions(o config.Options) Options {
	return Options{
		OnMalformed:  Policy(o.String("on_malformed", string(PolicySkip))),
		MaxLineBytes: o.Int("max_line_bytes", DefaultMaxLineBytes),
	}
}

// Stats counts what a decode saw.
type Stats struct {
	Lines     int // non-blank lines
	Records   int
	Malformed int
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Lines:     s.Lines + o.Lines,
		Records:   s.Records + o.Records,
		Malformed: s.Malformed + o.Malformed,
	}
}

// Fields is one decoded object keyed by its exact field names.
type Fields map[string]json.RawMessage

// Decoder reads NDJSON objects one line at a time.
type Decoder struct {
	br    *bufio.Reader
	buf   []byte
	limit int
	name  string
	opt   Options
	line  int
	st    Stats
}

// NewDecoder constructs a Decoder over r. name is only used in error
// messages.
func NewDecoder(r io.Reader, name string, opt Options) *Decoder {
	limit := opt.MaxLineBytes
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	return &Decoder{
		br:    bufio.NewReaderSize(r, min(64*1024, limit)),
		limit: limit,
		name:  name,
		opt:   opt,
	}
}

// Next returns the next object. Blank lines are skipped. io.EOF is returned
// when the stream is exhausted. A line that is not an object, or that is
// longer than MaxLineBytes, yields a *MalformedError; the caller decides
// whether to continue.
func (d *Decoder) Next() (Fields, error) {
	for {
		raw, tooLong, err := d.readLine()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("json: read %s after line %d: %w", d.name, d.line, err)
		}
		d.line++
		if tooLong {
			d.st.Lines++
			d.st.Malformed++
			return nil, &MalformedError{Name: d.name, Line: d.line, Err: fmt.Errorf("%w: limit is %d bytes", ErrLineTooLong, d.limit)}
		}
		b := bytes.TrimSpace(raw)
		if len(b) == 0 {
			continue
		}
		d.st.Lines++

		if b[0] != '{' {
			d.st.Malformed++
			return nil, &MalformedError{Name: d.name, Line: d.line, Err: errors.New("not a JSON object")}
		}
		var f Fields
		if err := json.Unmarshal(b, &f); err != nil {
			d.st.Malformed++
			return nil, &MalformedError{Name: d.name, Line: d.line, Err: err}
		}
		d.st.Records++
		return f, nil
	}
}

// readLine returns the next line without its terminator. A line longer
// than the limit is consumed up to its newline and reported as tooLong;
// at most limit+2 bytes of it are buffered.
func (d *Decoder) readLine() ([]byte, bool, error) {
	d.buf = d.buf[:0]
	n := 0
	for {
		frag, err := d.br.ReadSlice('\n')
		n += len(frag)
		if n <= d.limit+2 {
			d.buf = append(d.buf, frag...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && n == 0 {
			return nil, false, io.EOF
		}
		if err != nil && err != io.EOF {
			return nil, false, err
		}
		line := bytes.TrimRight(d.buf, "\r\n")
		if n > d.limit+2 || len(line) > d.limit {
			return nil, true, nil
		}
		return line, false, nil
	}
}

// Line returns the 1-based number of the last line read.
func (d *Decoder) Line() int { return d.line }

// Stats returns the counts so far.
func (d *Decoder) Stats() Stats { return d.st }

// each drives d to completion, applying the malformed policy. fn is called
// for every object; onMalformed (optional) for every skipped line.
func each(ctx context.Context, d *Decoder, onMalformed func(*MalformedError), fn func(Fields)) (Stats, error) {
	for {
		if d.line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return d.st, err
			}
		}
		f, err := d.Next()
		if err == io.EOF {
			return d.st, nil
		}
		var me *MalformedError
		if errors.As(err, &me) {
			if d.opt.OnMalformed == PolicyAbort {
				return d.st, me
			}
			if onMalformed != nil {
				onMalformed(me)
			}
			continue
		}
		if err != nil {
			return d.st, err
		}
		fn(f)
	}
}

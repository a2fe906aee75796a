// Package datasource abstracts the places raw input is read from and
// warehouse tables are written to. A Store is rooted at a URL (a local path,
// file://, s3:// or gs://); names passed to it are slash-separated and
// relative to that root.
//
// Backends register an Opener for their URL scheme at init time, the same way
// SQL backends register with the storage package. Importing
// songwarehouse/internal/datasource/all enables every built-in scheme.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ManifestName is the per-table completion marker. Swap publishes it after
// every other object of the table.
const ManifestName = "_SUCCESS"

// ErrUnsupportedScheme is returned by Open for a URL scheme nobody
// registered.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Source is anything that can be opened for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Store reads and writes named objects under a root.
type Store interface {
	// Glob returns the names matching pattern (path.Match syntax, "*" never
	// crosses "/"), sorted.
	Glob(ctx context.Context, pattern string) ([]string, error)

	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Create opens name for writing, creating parents as needed. The object
	// exists once Close returns nil.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Swap replaces the tree at dir with the tree at staging and removes
	// staging. Readers never see a mix of old and new objects inside dir's
	// manifest.
	Swap(ctx context.Context, staging, dir string) error

	// RemoveAll deletes the tree at prefix. A missing tree is not an error.
	RemoveAll(ctx context.Context, prefix string) error

	// String returns the root URL.
	String() string
}

// Aborter is implemented by writers returned from Create that can discard
// a partly written object instead of committing it on Close.
type Aborter interface {
	Abort(cause error) error
}

// Abort discards w. Writers without an Abort method are closed; the caller
// removes whatever that leaves behind.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(cause)
	}
	return w.Close()
}

// Opener constructs a Store rooted at u.
type Opener func(ctx context.Context, u *url.URL) (Store, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{}
)

// Register registers (or replaces) the Opener for scheme. It is typically
// called from backend packages' init() functions.
func Register(scheme string, fn Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[scheme] = fn
}

// Schemes lists the registered schemes, sorted.
func Schemes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(openers))
	for s := range openers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open parses raw and opens a Store with the Opener registered for its
// scheme. A value without "://" is a local path.
func Open(ctx context.Context, raw string) (Store, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	mu.RLock()
	fn, ok := openers[u.Scheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("datasource: %w %q in %s", ErrUnsupportedScheme, u.Scheme, raw)
	}
	s, err := fn(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", raw, err)
	}
	return s, nil
}

// ParseURL parses a store URL. "s3a" is accepted as an alias of "s3".
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("datasource: empty url")
	}
	if !strings.Contains(raw, "://") {
		return &url.URL{Scheme: "file", Path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("datasource: parse %q: %w", raw, err)
	}
	if u.Scheme == "s3a" || u.Scheme == "s3n" {
		u.Scheme = "s3"
	}
	return u, nil
}

// At binds name in s to a Source.
func At(s Store, name string) Source { return bound{s: s, name: name} }

type bound struct {
	s    Store
	name string
}

func (b bound) Open(ctx context.Context) (io.ReadCloser, error) { return b.s.Open(ctx, b.name) }

// StagingDir returns the staging location of dir for a run.
func StagingDir(runID, dir string) string {
	return "_staging/" + runID + "/" + strings.Trim(dir, "/")
}

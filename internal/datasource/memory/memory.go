// Package memory implements an in-process bucket. Stores opened with
// mem://<bucket>/<prefix> share the bucket for the lifetime of the process,
// which makes it the backend of choice for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"sync"

	"songwarehouse/internal/datasource"
)

func init() {
	datasource.Register("mem", func(_ context.Context, u *url.URL) (datasource.Store, error) {
		return datasource.NewObjectStore(Named(u.Host), u.Path, u.String()), nil
	})
}

var (
	bucketsMu sync.Mutex
	buckets   = map[string]*Bucket{}
)

// Named returns the process-wide bucket called name, creating it on first
// use.
func Named(name string) *Bucket {
	bucketsMu.Lock()
	defer bucketsMu.Unlock()
	b, ok := buckets[name]
	if !ok {
		b = New()
		buckets[name] = b
	}
	return b
}

// Bucket is a concurrency-safe map of keys to object bodies.
type Bucket struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

// New returns an empty bucket.
func New() *Bucket { return &Bucket{objs: map[string][]byte{}} }

// Keys returns every key, sorted.
func (b *Bucket) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.objs))
	for k := range b.objs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Bytes returns the body stored at key.
func (b *Bucket) Bytes(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.objs[key]
	return v, ok
}

// PutBytes stores body at key.
func (b *Bucket) PutBytes(key string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objs[key] = append([]byte(nil), body...)
}

func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for k := range b.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := b.Bytes(key)
	if !ok {
		return nil, fmt.Errorf("memory: get %s: %w", key, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (b *Bucket) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &writer{b: b, key: key}, nil
}

func (b *Bucket) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.objs[src]
	if !ok {
		return fmt.Errorf("memory: copy %s: %w", src, fs.ErrNotExist)
	}
	b.objs[dst] = body
	return nil
}

func (b *Bucket) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.objs, k)
	}
	return nil
}

// writer buffers until Close, like an object upload.
type writer struct {
	b   *Bucket
	key string
	buf bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writer) Close() error {
	w.b.PutBytes(w.key, w.buf.Bytes())
	return nil
}

// Abort drops the buffered body without storing it.
func (w *writer) Abort(error) error {
	w.buf.Reset()
	return nil
}

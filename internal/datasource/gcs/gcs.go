// Package gcs implements datasource.Objects on Google Cloud Storage and
// registers the "gs" scheme.
//
// Credentials come from Application Default Credentials, or from the file
// named by GOOGLE_APPLICATION_CREDENTIALS. STORAGE_EMULATOR_HOST is honoured
// by the client library.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"songwarehouse/internal/datasource"
)

func init() {
	datasource.Register("gs", open)
}

func open(ctx context.Context, u *url.URL) (datasource.Store, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("gcs: missing bucket in %s", u.Redacted())
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if os.Getenv("STORAGE_EMULATOR_HOST") != "" {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	root := url.URL{Scheme: "gs", Host: u.Host, Path: u.Path}
	return datasource.NewObjectStore(New(client.Bucket(u.Host)), u.Path, root.String()), nil
}

// Bucket is one GCS bucket.
type Bucket struct {
	h *storage.BucketHandle
}

// New wraps a bucket handle.
func New(h *storage.BucketHandle) *Bucket { return &Bucket{h: h} }

func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.h.Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.h.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: get %s: %w", key, err)
	}
	return r, nil
}

// Put returns an object writer; the object is committed by Close and
// dropped by Abort.
func (b *Bucket) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := b.h.Object(key).NewWriter(ctx)
	if strings.HasSuffix(key, ".parquet") {
		w.ContentType = "application/vnd.apache.parquet"
	}
	return &objectWriter{Writer: w, cancel: cancel}, nil
}

type objectWriter struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (w *objectWriter) Close() error {
	defer w.cancel()
	return w.Writer.Close()
}

// Abort cancels the upload; the client never finalizes an object whose
// context ended before Close.
func (w *objectWriter) Abort(error) error {
	w.cancel()
	_ = w.Writer.Close()
	return nil
}

func (b *Bucket) Copy(ctx context.Context, src, dst string) error {
	if _, err := b.h.Object(dst).CopierFrom(b.h.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("gcs: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (b *Bucket) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		err := b.h.Object(k).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gcs: delete %s: %w", k, err)
		}
	}
	return nil
}

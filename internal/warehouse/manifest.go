package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/parquet-go/parquet-go"
	"github.com/zeebo/xxh3"

	"songwarehouse/internal/datasource"
)

// ErrChecksum is returned by Verify when a file no longer matches its
// manifest entry.
var ErrChecksum = errors.New("checksum mismatch")

// Manifest is the content of a table's _SUCCESS marker. It carries no
// timestamps, so identical input produces an identical manifest apart from
// the run id.
type Manifest struct {
	RunID       string      `json:"run_id"`
	Table       string      `json:"table"`
	Dir         string      `json:"dir"`
	PartitionBy []string    `json:"partition_by,omitempty"`
	Compression string      `json:"compression"`
	Rows        int64       `json:"rows"`
	Bytes       int64       `json:"bytes"`
	Files       []FileEntry `json:"files"`
}

// FileEntry describes one data file relative to the table directory.
type FileEntry struct {
	Path  string `json:"path"`
	Rows  int64  `json:"rows"`
	Bytes int64  `json:"bytes"`
	XXH3  string `json:"xxh3"`
}

func writeManifest(ctx context.Context, store datasource.Store, dir string, m Manifest) error {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	f, err := store.Create(ctx, path.Join(dir, datasource.ManifestName))
	if err != nil {
		return err
	}
	if _, err := f.Write(append(body, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest loads the published manifest of the table at dir.
func ReadManifest(ctx context.Context, store datasource.Store, dir string) (Manifest, error) {
	body, err := readAll(ctx, store, path.Join(dir, datasource.ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("warehouse: read manifest %s: %w", dir, err)
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return Manifest{}, fmt.Errorf("warehouse: decode manifest %s: %w", dir, err)
	}
	return m, nil
}

// Verify re-reads every file listed in the manifest at dir and checks its
// size and digest.
func Verify(ctx context.Context, store datasource.Store, dir string) (Manifest, error) {
	m, err := ReadManifest(ctx, store, dir)
	if err != nil {
		return Manifest{}, err
	}
	for _, fe := range m.Files {
		body, err := readAll(ctx, store, path.Join(dir, fe.Path))
		if err != nil {
			return m, fmt.Errorf("warehouse: verify %s: %w", dir, err)
		}
		if int64(len(body)) != fe.Bytes || digest(xxh3.Hash(body)) != fe.XXH3 {
			return m, fmt.Errorf("warehouse: verify %s/%s: %w", dir, fe.Path, ErrChecksum)
		}
	}
	return m, nil
}

// ReadRows decodes the Parquet object at name into rows of type R, one of
// the row layouts of this package.
func ReadRows[R any](ctx context.Context, store datasource.Store, name string) ([]R, error) {
	body, err := readAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("warehouse: read %s: %w", name, err)
	}
	rows, err := parquet.Read[R](bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("warehouse: decode %s: %w", name, err)
	}
	return rows, nil
}

func readAll(ctx context.Context, store datasource.Store, name string) ([]byte, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

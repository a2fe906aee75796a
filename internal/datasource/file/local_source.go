// Package file implements the local filesystem Store, registered for the
// "file" scheme and for bare paths.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"songwarehouse/internal/datasource"
)

func init() {
	datasource.Register("file", func(_ context.Context, u *url.URL) (datasource.Store, error) {
		root := u.Path
		if u.Host != "" && u.Host != "localhost" {
			return nil, fmt.Errorf("file: remote host %q not supported", u.Host)
		}
		return NewStore(root), nil
	})
}

// Local is a single file opened from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file for reading. A canceled context short-circuits before
// the filesystem is touched; filesystem errors keep errors.Is working.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Store is a datasource.Store rooted at a local directory.
type Store struct{ root string }

// NewStore returns a Store rooted at dir. The directory is created lazily by
// Create.
func NewStore(dir string) *Store { return &Store{root: filepath.Clean(dir)} }

func (s *Store) String() string { return "file://" + filepath.ToSlash(s.root) }

func (s *Store) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Glob matches regular files only.
func (s *Store) Glob(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(s.path(pattern))
	if err != nil {
		return nil, fmt.Errorf("file: glob %s: %w", pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			return nil, fmt.Errorf("file: glob %s: %w", pattern, err)
		}
		names = append(names, filepath.ToSlash(rel))
	}
	return datasource.MatchNames(pattern, names)
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return NewLocal(s.path(name)).Open(ctx)
}

func (s *Store) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("file: create %s: %w", name, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("file: create %s: %w", name, err)
	}
	return partFile{f}, nil
}

// partFile is a file being written; Abort closes and removes it.
type partFile struct{ *os.File }

func (f partFile) Abort(error) error {
	_ = f.File.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file: abort %s: %w", f.Name(), err)
	}
	return nil
}

// Swap exchanges the staging directory with dir in one rename where the
// platform supports it, then removes what used to be live.
func (s *Store) Swap(ctx context.Context, staging, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, dst := s.path(staging), s.path(dir)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("file: swap %s: staging: %w", dir, err)
	}

	if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("file: swap %s: %w", dir, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("file: swap %s: %w", dir, err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("file: swap %s: %w", dir, err)
	}

	// After the exchange src holds the previous tree.
	if err := exchange(src, dst); err != nil {
		return fmt.Errorf("file: swap %s: %w", dir, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("file: swap %s: remove previous: %w", dir, err)
	}
	return nil
}

func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.path(prefix)); err != nil {
		return fmt.Errorf("file: remove %s: %w", prefix, err)
	}
	return nil
}

// renamePair is the portable exchange: move dst aside, move src into place,
// then leave the old tree at src for the caller to remove.
func renamePair(src, dst string) error {
	aside := dst + ".previous"
	if err := os.RemoveAll(aside); err != nil {
		return err
	}
	if err := os.Rename(dst, aside); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		// Put the live tree back.
		if rerr := os.Rename(aside, dst); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return os.Rename(aside, src)
}

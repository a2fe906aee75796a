package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Objects is the flat key space of an object store bucket. Keys are full
// bucket keys.
type Objects interface {
	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, keys ...string) error
}

// ObjectStore implements Store on top of a bucket. Directories are key
// prefixes. A bucket has no rename, so Swap copies objects and keeps a
// snapshot of the live tree until the new one is complete.
type ObjectStore struct {
	obj    Objects
	prefix string
	url    string
}

// NewObjectStore roots a Store at prefix inside obj. rootURL is what String
// reports.
func NewObjectStore(obj Objects, prefix, rootURL string) *ObjectStore {
	return &ObjectStore{obj: obj, prefix: strings.Trim(prefix, "/"), url: rootURL}
}

func (s *ObjectStore) String() string { return s.url }

func (s *ObjectStore) key(name string) string {
	name = strings.Trim(name, "/")
	switch {
	case s.prefix == "":
		return name
	case name == "":
		return s.prefix
	}
	return s.prefix + "/" + name
}

func (s *ObjectStore) rel(key string) (string, bool) {
	if s.prefix == "" {
		return key, true
	}
	if !strings.HasPrefix(key, s.prefix+"/") {
		return "", false
	}
	return key[len(s.prefix)+1:], true
}

// listDir returns the keys under dir, relative to dir.
func (s *ObjectStore) listDir(ctx context.Context, dir string) ([]string, error) {
	base := s.key(dir)
	if base != "" {
		base += "/"
	}
	keys, err := s.obj.List(ctx, base)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, base) && len(k) > len(base) {
			out = append(out, k[len(base):])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ObjectStore) Glob(ctx context.Context, pattern string) ([]string, error) {
	lit := LiteralPrefix(pattern)
	listPrefix := s.prefix
	if lit != "" {
		listPrefix = s.key(lit)
		if strings.HasSuffix(lit, "/") {
			listPrefix += "/"
		}
	} else if listPrefix != "" {
		listPrefix += "/"
	}
	keys, err := s.obj.List(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("datasource: glob %s in %s: %w", pattern, s.url, err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if r, ok := s.rel(k); ok {
			names = append(names, r)
		}
	}
	out, err := MatchNames(pattern, names)
	if err != nil {
		return nil, fmt.Errorf("datasource: glob %s: %w", pattern, err)
	}
	return out, nil
}

func (s *ObjectStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.obj.Get(ctx, s.key(name))
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", name, err)
	}
	return rc, nil
}

func (s *ObjectStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	wc, err := s.obj.Put(ctx, s.key(name))
	if err != nil {
		return nil, fmt.Errorf("datasource: create %s: %w", name, err)
	}
	return wc, nil
}

// Swap snapshots the live tree under staging+".previous", retracts the live
// manifest, copies the staged objects into place, deletes stale keys and
// publishes the staged manifest last. Any failure after the snapshot puts
// the previous tree back, manifest included.
func (s *ObjectStore) Swap(ctx context.Context, staging, dir string) error {
	staged, err := s.listDir(ctx, staging)
	if err != nil {
		return fmt.Errorf("datasource: swap %s: list staging: %w", dir, err)
	}
	live, err := s.listDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("datasource: swap %s: list live: %w", dir, err)
	}

	backup := strings.TrimRight(staging, "/") + ".previous"
	if err := s.copyTree(ctx, dir, backup, live); err != nil {
		return errors.Join(
			fmt.Errorf("datasource: swap %s: snapshot: %w", dir, err),
			s.RemoveAll(ctx, backup),
		)
	}

	if err := s.replace(ctx, staging, dir, staged, live); err != nil {
		if rerr := s.restore(ctx, backup, dir, live); rerr != nil {
			return fmt.Errorf("datasource: swap %s: %w (restore failed, previous tree kept at %s: %v)", dir, err, backup, rerr)
		}
		return fmt.Errorf("datasource: swap %s: %w", dir, err)
	}
	if err := s.RemoveAll(ctx, backup); err != nil {
		return err
	}
	return s.RemoveAll(ctx, staging)
}

// replace moves the staged tree over dir. live is the listing of dir taken
// before the swap started.
func (s *ObjectStore) replace(ctx context.Context, staging, dir string, staged, live []string) error {
	for _, name := range live {
		if path.Base(name) == ManifestName {
			if err := s.obj.Delete(ctx, s.key(path.Join(dir, name))); err != nil {
				return fmt.Errorf("retract manifest: %w", err)
			}
		}
	}

	keep := make(map[string]bool, len(staged))
	var manifests []string
	for _, name := range staged {
		keep[name] = true
		if path.Base(name) == ManifestName {
			manifests = append(manifests, name)
			continue
		}
		if err := s.obj.Copy(ctx, s.key(path.Join(staging, name)), s.key(path.Join(dir, name))); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}

	var stale []string
	for _, name := range live {
		if !keep[name] && path.Base(name) != ManifestName {
			stale = append(stale, s.key(path.Join(dir, name)))
		}
	}
	if len(stale) > 0 {
		if err := s.obj.Delete(ctx, stale...); err != nil {
			return fmt.Errorf("delete stale: %w", err)
		}
	}

	for _, name := range manifests {
		if err := s.obj.Copy(ctx, s.key(path.Join(staging, name)), s.key(path.Join(dir, name))); err != nil {
			return fmt.Errorf("publish manifest: %w", err)
		}
	}
	return nil
}

// restore puts the snapshot at backup back under dir and drops whatever the
// failed swap added. The manifest is copied last. The snapshot is removed
// only once dir matches it again.
func (s *ObjectStore) restore(ctx context.Context, backup, dir string, previous []string) error {
	// Restoring runs even when the swap failed because ctx ended.
	ctx = context.WithoutCancel(ctx)

	current, err := s.listDir(ctx, dir)
	if err != nil {
		return err
	}
	if err := s.copyTree(ctx, backup, dir, previous); err != nil {
		return err
	}
	had := make(map[string]bool, len(previous))
	for _, name := range previous {
		had[name] = true
	}
	var added []string
	for _, name := range current {
		if !had[name] {
			added = append(added, s.key(path.Join(dir, name)))
		}
	}
	if len(added) > 0 {
		if err := s.obj.Delete(ctx, added...); err != nil {
			return err
		}
	}
	return s.RemoveAll(ctx, backup)
}

// copyTree copies names from src to dst, manifests last.
func (s *ObjectStore) copyTree(ctx context.Context, src, dst string, names []string) error {
	var manifests []string
	for _, name := range names {
		if path.Base(name) == ManifestName {
			manifests = append(manifests, name)
			continue
		}
		if err := s.obj.Copy(ctx, s.key(path.Join(src, name)), s.key(path.Join(dst, name))); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	for _, name := range manifests {
		if err := s.obj.Copy(ctx, s.key(path.Join(src, name)), s.key(path.Join(dst, name))); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return nil
}

func (s *ObjectStore) RemoveAll(ctx context.Context, prefix string) error {
	names, err := s.listDir(ctx, prefix)
	if err != nil {
		return fmt.Errorf("datasource: remove %s: %w", prefix, err)
	}
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.key(path.Join(prefix, n))
	}
	if err := s.obj.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("datasource: remove %s: %w", prefix, err)
	}
	return nil
}

package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songwarehouse/internal/datasource"
)

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

// TestLocalOpen covers success, missing file, and pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "data.txt", "hello\nworld")

	rc, err := NewLocal(filepath.Join(dir, "data.txt")).Open(context.Background())
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello\nworld", string(got))

	_, err = NewLocal(filepath.Join(dir, "missing.txt")).Open(context.Background())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "open ")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewLocal(filepath.Join(dir, "data.txt")).Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Glob(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "song-data/A/B/C/TRABCEI128F424C983.json", "{}")
	writeFile(t, root, "song-data/A/A/B/TRAABJV128F1460C49.json", "{}")
	writeFile(t, root, "song-data/A/B/TRSHALLOW.json", "{}")
	writeFile(t, root, "log-data/2018-11-01-events.json", "{}")
	writeFile(t, root, "log-data/2018-11-02-events.json", "{}")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "log-data", "dir.json"), 0o755))

	s := NewStore(root)

	songs, err := s.Glob(context.Background(), "song-data/*/*/*/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"song-data/A/A/B/TRAABJV128F1460C49.json",
		"song-data/A/B/C/TRABCEI128F424C983.json",
	}, songs)

	logs, err := s.Glob(context.Background(), "log-data/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"log-data/2018-11-01-events.json", "log-data/2018-11-02-events.json"}, logs)

	none, err := s.Glob(context.Background(), "missing/*.json")
	require.NoError(t, err)
	assert.Empty(t, none)
}

/*
TestStore_SwapReplacesLiveTree verifies the overwrite contract of the local
store: the staged tree becomes the live tree, nothing of the previous tree
survives, and the staging directory is gone afterwards.
*/
func TestStore_SwapReplacesLiveTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "time/year=2018/month=10/part-0.parquet", "old")
	writeFile(t, root, "time/_SUCCESS", "old manifest")
	writeFile(t, root, "_staging/r1/time/year=2018/month=11/part-0.parquet", "new")
	writeFile(t, root, "_staging/r1/time/_SUCCESS", "new manifest")

	s := NewStore(root)
	require.NoError(t, s.Swap(context.Background(), "_staging/r1/time", "time"))
	require.NoError(t, s.RemoveAll(context.Background(), "_staging/r1"))

	assert.Equal(t, []string{
		"time/_SUCCESS",
		"time/year=2018/month=11/part-0.parquet",
	}, listTree(t, root))
	assert.NoDirExists(t, filepath.Join(root, "_staging", "r1"))
	assert.NoDirExists(t, filepath.Join(root, "time", "year=2018", "month=10"))

	b, err := os.ReadFile(filepath.Join(root, "time", "_SUCCESS"))
	require.NoError(t, err)
	assert.Equal(t, "new manifest", string(b))
}

func TestStore_SwapFirstRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "_staging/r1/artist/part-0.parquet", "x")

	s := NewStore(root)
	require.NoError(t, s.Swap(context.Background(), "_staging/r1/artist", "artist"))
	assert.FileExists(t, filepath.Join(root, "artist", "part-0.parquet"))
	assert.NoDirExists(t, filepath.Join(root, "_staging", "r1", "artist"))
}

func TestStore_SwapMissingStaging(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "songs/part-0.parquet", "live")

	s := NewStore(root)
	err := s.Swap(context.Background(), "_staging/nope/songs", "songs")
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(root, "songs", "part-0.parquet"))
}

func TestRenamePair(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "new/a", "new")
	writeFile(t, root, "live/a", "old")

	require.NoError(t, renamePair(filepath.Join(root, "new"), filepath.Join(root, "live")))

	b, _ := os.ReadFile(filepath.Join(root, "live", "a"))
	assert.Equal(t, "new", string(b))
	b, _ = os.ReadFile(filepath.Join(root, "new", "a"))
	assert.Equal(t, "old", string(b), "previous tree is left at the source path")
}

func TestStore_CreateAndRegistry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st, err := datasource.Open(context.Background(), "file://"+filepath.ToSlash(root))
	require.NoError(t, err)

	w, err := st.Create(context.Background(), "a/b/c.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rc, err := st.Open(context.Background(), "a/b/c.txt")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "payload", string(got))

	bare, err := datasource.Open(context.Background(), root)
	require.NoError(t, err)
	names, err := bare.Glob(context.Background(), "a/b/*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c.txt"}, names)
}

func TestStore_AbortRemovesPartialFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := NewStore(root)
	w, err := st.Create(context.Background(), "_staging/r/songs/part-0.parquet")
	require.NoError(t, err)
	_, err = w.Write([]byte("PAR1 half"))
	require.NoError(t, err)

	require.NoError(t, datasource.Abort(w, errors.New("encode failed")))
	assert.Empty(t, listTree(t, root))
}

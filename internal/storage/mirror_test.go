package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"songwarehouse/internal/schema"
)

// memRepo keeps tables as row slices and records the statements it ran.
type memRepo struct {
	mu      sync.Mutex
	tables  map[string][][]any
	log     []string
	copyErr error
	swapErr error
}

func newMemRepo() *memRepo { return &memRepo{tables: map[string][][]any{}} }

func (r *memRepo) CopyFrom(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.copyErr != nil {
		return 0, r.copyErr
	}
	if _, ok := r.tables[table]; !ok {
		return 0, errors.New("no such table " + table)
	}
	for _, row := range rows {
		r.tables[table] = append(r.tables[table], append([]any(nil), row...))
	}
	r.log = append(r.log, "copy "+table)
	return int64(len(rows)), nil
}

func (r *memRepo) Exec(_ context.Context, stmt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.TrimPrefix(stmt, "CREATE ")
	r.tables[name] = nil
	r.log = append(r.log, "create "+name)
	return nil
}

func (r *memRepo) DropTable(_ context.Context, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, table)
	r.log = append(r.log, "drop "+table)
	return nil
}

func (r *memRepo) SwapTable(_ context.Context, staging, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.swapErr != nil {
		return r.swapErr
	}
	r.tables[table] = r.tables[staging]
	delete(r.tables, staging)
	r.log = append(r.log, "swap "+staging+" "+table)
	return nil
}

func (r *memRepo) Close() {}

func init() {
	RegisterDDL("memtest", func(_ schema.Table, fqn string) (string, error) { return "CREATE " + fqn, nil })
}

func newTestMirror(t *testing.T, repo Repository, opt MirrorOptions) *Mirror {
	t.Helper()
	opt.Kind = "memtest"
	return NewMirror(repo, opt, zaptest.NewLogger(t))
}

func TestMirror_Names(t *testing.T) {
	t.Parallel()

	m := newTestMirror(t, newMemRepo(), MirrorOptions{Schema: "analytics", TablePrefix: "dw_", RunID: "0f8e2c4a-1b2c-4d5e-8f90-a1b2c3d4e5f6"})
	assert.Equal(t, "analytics.dw_songs", m.TableName(schema.Songs))
	assert.Equal(t, "analytics.dw_songs__stg_0f8e2c4a", m.StagingName(schema.Songs))

	bare := newTestMirror(t, newMemRepo(), MirrorOptions{})
	assert.Equal(t, "time", bare.TableName(schema.Time))
	assert.Equal(t, "time__stg_run", bare.StagingName(schema.Time))
}

func TestRows_ResolvesNullWrappers(t *testing.T) {
	t.Parallel()

	rows := Rows([]schema.UserDim{{UserID: "7", FirstName: sql.NullString{String: "Ann", Valid: true}}})
	require.Len(t, rows, 1)
	dst := make([]any, len(rows[0]))
	plainInto(dst, rows[0])
	assert.Equal(t, []any{"7", "Ann", nil, nil, nil}, dst)
}

/*
TestMirror_ReplaceTable verifies the staging flow: drop leftovers, create
the staging table, copy in batches and swap it in for the live table.
*/
func TestMirror_ReplaceTable(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	repo.tables["songs"] = [][]any{{"OLD"}}
	m := newTestMirror(t, repo, MirrorOptions{BatchSize: 2, RunID: "abc"})

	rows := Rows([]schema.SongDim{{SongID: "S1"}, {SongID: "S2"}, {SongID: "S3"}})
	n, err := m.ReplaceTable(context.Background(), schema.Songs, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.Equal(t, []string{
		"drop songs__stg_abc",
		"create songs__stg_abc",
		"copy songs__stg_abc",
		"copy songs__stg_abc",
		"swap songs__stg_abc songs",
	}, repo.log)
	require.Len(t, repo.tables["songs"], 3)
	for i, id := range []string{"S1", "S2", "S3"} {
		assert.Equal(t, id, repo.tables["songs"][i][0])
	}
	assert.Nil(t, repo.tables["songs"][0][1])
	_, leftover := repo.tables["songs__stg_abc"]
	assert.False(t, leftover)
}

func TestMirror_FailureKeepsLiveTable(t *testing.T) {
	t.Parallel()

	for name, mutate := range map[string]func(*memRepo){
		"copy": func(r *memRepo) { r.copyErr = errors.New("copy refused") },
		"swap": func(r *memRepo) { r.swapErr = errors.New("swap refused") },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := newMemRepo()
			repo.tables["users"] = [][]any{{"OLD"}}
			mutate(repo)
			m := newTestMirror(t, repo, MirrorOptions{RunID: "r1"})

			_, err := m.ReplaceTable(context.Background(), schema.Users, Rows([]schema.UserDim{{UserID: "1"}}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "storage: replace users:")
			assert.Contains(t, err.Error(), "refused")

			assert.Equal(t, [][]any{{"OLD"}}, repo.tables["users"])
			_, leftover := repo.tables["users__stg_r1"]
			assert.False(t, leftover)
		})
	}
}

func TestMirror_UnknownDialect(t *testing.T) {
	t.Parallel()

	m := NewMirror(newMemRepo(), MirrorOptions{Kind: "nope"}, nil)
	_, err := m.ReplaceTable(context.Background(), schema.Songs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no DDL builder registered for storage.kind="nope"`)
}

func TestMirror_ReplaceAll(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	m := newTestMirror(t, repo, MirrorOptions{})
	counts, err := m.ReplaceAll(context.Background(), []TableRows{
		{Table: schema.Songs, Rows: Rows([]schema.SongDim{{SongID: "S1"}})},
		{Table: schema.Time, Rows: Rows([]schema.TimeDim{{TS: 1}, {TS: 2}})},
		{Table: schema.Songplays},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"songs": 1, "time": 2, "songplays": 0}, counts)
	assert.Contains(t, repo.tables, "songplays")
}

func TestCreateTableSQL_Registry(t *testing.T) {
	t.Parallel()

	got, err := CreateTableSQL("memtest", schema.Songs, "x.songs")
	require.NoError(t, err)
	assert.Equal(t, "CREATE x.songs", got)
	assert.Contains(t, DDLKinds(), "memtest")

	_, err = CreateTableSQL("missing", schema.Songs, "songs")
	assert.Error(t, err)
}

func TestMirror_RaggedRowKeepsLiveTable(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	repo.tables["songs"] = [][]any{{"OLD"}}
	m := newTestMirror(t, repo, MirrorOptions{BatchSize: 2, RunID: "abc"})

	_, err := m.ReplaceTable(context.Background(), schema.Songs, [][]any{{"S1", nil, nil, nil, nil}, {"S2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, want 5")
	assert.Equal(t, [][]any{{"OLD"}}, repo.tables["songs"])
	_, leftover := repo.tables["songs__stg_abc"]
	assert.False(t, leftover)
}

package mysql

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songwarehouse/internal/storage"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("dw.songs", []string{"song_id", "title"}, 2)
	assert.Equal(t, "INSERT INTO `dw`.`songs` (`song_id`, `title`) VALUES (?, ?), (?, ?)", got)
}

func TestRenameSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "RENAME TABLE `songs__stg_ab` TO `songs`", renameSQL("songs__stg_ab", "songs", ""))
	assert.Equal(t,
		"RENAME TABLE `dw`.`songs` TO `dw`.`songs__stg_ab_old`, `dw`.`songs__stg_ab` TO `dw`.`songs`",
		renameSQL("dw.songs__stg_ab", "dw.songs", "dw.songs__stg_ab_old"))
}

func TestCopyFrom_Validation(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	_, err := r.CopyFrom(context.Background(), "t", nil, [][]any{{1}})
	require.Error(t, err)

	n, err := r.CopyFrom(context.Background(), "t", []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "user:pass@tcp(localhost:3306"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "mysql dsn"))
}

// TestRegistrationUsesNewRepositoryHook verifies that storage.New routes the
// "mysql" kind through newRepository.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, nil, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db:3306)/dw"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/dw", got.DSN)
	repo.Close()
	assert.Contains(t, storage.DDLKinds(), "mysql")
}

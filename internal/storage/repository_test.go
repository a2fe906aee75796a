package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopRepo satisfies Repository without a database.
type nopRepo struct{ closed bool }

func (r *nopRepo) CopyFrom(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (r *nopRepo) Exec(context.Context, string) error              { return nil }
func (r *nopRepo) DropTable(context.Context, string) error         { return nil }
func (r *nopRepo) SwapTable(context.Context, string, string) error { return nil }
func (r *nopRepo) Close()                                          { r.closed = true }

func TestRegistry_NewPassesConfig(t *testing.T) {
	t.Parallel()

	var got Config
	Register("registry-test", func(_ context.Context, cfg Config) (Repository, error) {
		got = cfg
		return &nopRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "registry-test", DSN: "file:dw.db"})
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, Config{Kind: "registry-test", DSN: "file:dw.db"}, got)
	assert.Contains(t, ListKinds(), "registry-test")
}

func TestRegistry_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "oracle"})
	require.EqualError(t, err, "unsupported storage.kind=oracle")
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	t.Parallel()

	first, second := &nopRepo{}, &nopRepo{}
	Register("registry-override", func(context.Context, Config) (Repository, error) { return first, nil })
	Register("registry-override", func(context.Context, Config) (Repository, error) { return second, nil })

	repo, err := New(context.Background(), Config{Kind: "registry-override"})
	require.NoError(t, err)
	assert.Same(t, second, repo)
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	Register("registry-down", func(context.Context, Config) (Repository, error) { return nil, refused })

	_, err := New(context.Background(), Config{Kind: "registry-down"})
	require.ErrorIs(t, err, refused)
}

func TestListKinds_ReturnsCopy(t *testing.T) {
	t.Parallel()

	Register("registry-copy", func(context.Context, Config) (Repository, error) { return &nopRepo{}, nil })
	kinds := ListKinds()
	require.NotEmpty(t, kinds)
	kinds[0] = "mutated"
	assert.NotContains(t, ListKinds(), "mutated")
}

package all

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"songwarehouse/internal/storage"
)

func TestBackendsRegistered(t *testing.T) {
	t.Parallel()

	want := []string{"mssql", "mysql", "postgres", "sqlite"}
	assert.Equal(t, want, storage.ListKinds())
	assert.Equal(t, want, storage.DDLKinds())
}

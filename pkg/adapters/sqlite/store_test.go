package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/sqlite"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), sqlite.DefaultDatabaseFile))
	ports.RunCallStateStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), sqlite.DefaultDatabaseFile)
	ctx := context.Background()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "call-1", "greeting"))
	require.NoError(t, first.Set(ctx, "call-2", "start"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)

	node, err := second.Get(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "greeting", node)

	ids, err := second.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"call-1", "call-2"}, ids)
}

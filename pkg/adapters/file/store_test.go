package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/callflow/pkg/adapters/file"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store, err := file.Open(filepath.Join(t.TempDir(), file.DefaultCallStateFile))
	require.NoError(t, err)
	ports.RunCallStateStoreContract(t, store)
}

func TestFileStore_Bootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", file.DefaultCallStateFile)

	_, err := file.Open(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), file.DefaultCallStateFile)

	store, err := file.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "abc", "start"))
	require.NoError(t, store.Set(ctx, "x", "end"))

	reopened, err := file.Open(path)
	require.NoError(t, err)
	assert.Equal(t, store.Snapshot(), reopened.Snapshot())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"abc":"start","x":"end"}`, string(data))
}

func TestFileStore_CorruptionIsFatal(t *testing.T) {
	cases := map[string]string{
		"Truncated": `{"abc": "sta`,
		"Not object": `["abc"]`,
		"Null":       `null`,
		"Empty":      ``,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file.DefaultCallStateFile)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := file.Open(path)
			assert.ErrorIs(t, err, domain.ErrStorageCorruption)

			after, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, content, string(after), "corrupted data must not be reset")
		})
	}
}

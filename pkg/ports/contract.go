package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCallStateStoreContract runs a suite of tests to verify that a CallStateStore
// implementation adheres to the defined interface contract.
func RunCallStateStoreContract(t *testing.T, store CallStateStore) {
	ctx := context.Background()
	callID := "contract-call-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, callID, "start"), "Set should not return error")

		node, err := store.Get(ctx, callID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, "start", node)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, callID, "start"))
		require.NoError(t, store.Set(ctx, callID, "end"))

		node, err := store.Get(ctx, callID)
		require.NoError(t, err)
		assert.Equal(t, "end", node)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+callID)
		assert.ErrorIs(t, err, domain.ErrCallNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, callID, "start"))
		require.NoError(t, store.Delete(ctx, callID), "Delete should not return error")

		_, err := store.Get(ctx, callID)
		assert.ErrorIs(t, err, domain.ErrCallNotFound, "Get after Delete should return ErrCallNotFound")

		assert.NoError(t, store.Delete(ctx, callID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := callID + "-1"
		id2 := callID + "-2"
		require.NoError(t, store.Set(ctx, id1, "start"))
		require.NoError(t, store.Set(ctx, id2, "start"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		calls, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, calls, id1)
		assert.Contains(t, calls, id2)
	})
}

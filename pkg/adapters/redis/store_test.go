package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/callflow/pkg/adapters/redis"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)

	store := redis.NewFromClient(client)
	ports.RunCallStateStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	err := store.Set(ctx, "call-ttl", "greeting")
	assert.NoError(t, err)

	node, err := store.Get(ctx, "call-ttl")
	assert.NoError(t, err)
	assert.Equal(t, "greeting", node)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "call-ttl")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client, redis.WithPrefix("tenant:"))
	ctx := context.Background()

	err := store.Set(ctx, "call-1", "start")
	assert.NoError(t, err)

	assert.True(t, mr.Exists("tenant:call-1"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"call-1"))

	got, err := mr.Get("tenant:call-1")
	assert.NoError(t, err)
	assert.Equal(t, "start", got)
}

func TestRedisStore_Ping(t *testing.T) {
	mr, client := newMiniredis(t)

	store := redis.NewFromClient(client)
	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cacher/internal/testutil"
)

func TestNewStore_Panic(t *testing.T) {
	assert.Panics(t, func() { NewStore(nil, "") })
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient(RedisOptions{
		URL:     "redis://127.0.0.1:6390/2",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "127.0.0.1:6390", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, DefaultPoolSize, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)

	_, err = NewRedisClient(RedisOptions{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestStore_GetSetExpire(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	store := NewStore(client, "")
	ctx := context.Background()

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, found, err := conn.Get(ctx, "GET_http://host/a")
	require.NoError(t, err)
	assert.False(t, found, "empty store must miss")

	require.NoError(t, conn.Set(ctx, "GET_http://host/a", `{"status":200}`))
	assert.Equal(t, time.Duration(0), mr.TTL("GET_http://host/a"), "Set must not apply a TTL")

	require.NoError(t, conn.Expire(ctx, "GET_http://host/a", 5*time.Second))
	assert.Equal(t, 5*time.Second, mr.TTL("GET_http://host/a"))

	value, found, err := conn.Get(ctx, "GET_http://host/a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"status":200}`, value)

	mr.FastForward(5 * time.Second)

	_, found, err = conn.Get(ctx, "GET_http://host/a")
	require.NoError(t, err)
	assert.False(t, found, "entry must be gone after its TTL")
}

func TestStore_Prefix(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	store := NewStore(client, "cacher:")
	ctx := context.Background()

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Set(ctx, "/a", "Accept"))
	assert.True(t, mr.Exists("cacher:/a"))
	assert.False(t, mr.Exists("/a"))
}

func TestStore_ReadFailure(t *testing.T) {
	mr, client := testutil.NewMiniRedis(t)
	store := NewStore(client, "")
	ctx := context.Background()

	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Close()

	// establish both connections before failing every command
	require.NoError(t, conn.Set(ctx, "warm", "1"))
	require.NoError(t, store.Ping(ctx))

	mr.SetError("ERR store unavailable")
	_, _, err = conn.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, conn.Set(ctx, "k", "v"))
	assert.Error(t, conn.Expire(ctx, "k", time.Second))
	assert.Error(t, store.Ping(ctx))

	mr.SetError("")
	assert.NoError(t, store.Ping(ctx))
}

func TestStore_AcquireCanceled(t *testing.T) {
	_, client := testutil.NewMiniRedis(t)
	store := NewStore(client, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

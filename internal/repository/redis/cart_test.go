package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *cartStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewCartStore(rdb, ttl).(*cartStore)
}

func TestCartStore_AddAccumulates(t *testing.T) {
	ctx := context.Background()
	_, store := newStore(t, 0)

	_, err := store.Add(ctx, "alice", "tomatoes", 500)
	require.NoError(t, err)
	got, err := store.Add(ctx, "alice", "tomatoes", 300)
	require.NoError(t, err)
	assert.Equal(t, 800.0, got)

	items, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"tomatoes": 800}, items)
}

func TestCartStore_NonPositiveRemovesEntryAndKey(t *testing.T) {
	ctx := context.Background()
	mr, store := newStore(t, 0)

	_, err := store.Add(ctx, "alice", "bread", 2)
	require.NoError(t, err)
	got, err := store.Add(ctx, "alice", "bread", -3)
	require.NoError(t, err)

	assert.Zero(t, got)
	assert.False(t, mr.Exists(cartKey("alice")))
}

func TestCartStore_RemoveLastEntryDropsCart(t *testing.T) {
	ctx := context.Background()
	mr, store := newStore(t, 0)
	_, err := store.Add(ctx, "alice", "bread", 1)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "alice", "bread"))

	assert.False(t, mr.Exists(cartKey("alice")))
	items, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartStore_Clear(t *testing.T) {
	ctx := context.Background()
	mr, store := newStore(t, 0)
	_, _ = store.Add(ctx, "alice", "a", 1)
	_, _ = store.Add(ctx, "alice", "b", 2)

	require.NoError(t, store.Clear(ctx, "alice"))

	assert.False(t, mr.Exists(cartKey("alice")))
}

func TestCartStore_TTLRefreshedOnAdd(t *testing.T) {
	ctx := context.Background()
	mr, store := newStore(t, time.Hour)

	_, err := store.Add(ctx, "alice", "a", 1)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(cartKey("alice")))

	mr.FastForward(2 * time.Hour)
	items, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	_, store := newStore(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Add(ctx, "alice", "bread", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50.0, items["bread"])
}

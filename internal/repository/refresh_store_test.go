package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/role-portal/pkg/redis"
)

func refreshStores(t *testing.T) map[string]RefreshStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	return map[string]RefreshStore{
		"memory": NewMemoryRefreshStore(nil),
		"redis":  NewRedisRefreshStore(client, nil),
	}
}

func TestRefreshStore_SingleUse(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "u1", "jti-1", time.Now().Add(time.Hour)))

			ok, err := store.Consume(ctx, "u1", "jti-1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = store.Consume(ctx, "u1", "jti-1")
			require.NoError(t, err)
			assert.False(t, ok, "replayed token id must not be accepted")
		})
	}
}

func TestRefreshStore_OwnerMismatch(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "u1", "jti-2", time.Now().Add(time.Hour)))

			ok, err := store.Consume(ctx, "u2", "jti-2")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRefreshStore_RevokeAll(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)
			require.NoError(t, store.Save(ctx, "u1", "a", exp))
			require.NoError(t, store.Save(ctx, "u1", "b", exp))
			require.NoError(t, store.Save(ctx, "u2", "c", exp))

			require.NoError(t, store.RevokeAll(ctx, "u1"))

			for _, id := range []string{"a", "b"} {
				ok, err := store.Consume(ctx, "u1", id)
				require.NoError(t, err)
				assert.False(t, ok)
			}
			ok, err := store.Consume(ctx, "u2", "c")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRefreshStore_Revoke(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "u1", "r1", time.Now().Add(time.Hour)))
			require.NoError(t, store.Revoke(ctx, "u1", "r1"))

			ok, err := store.Consume(ctx, "u1", "r1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRefreshStore_ConcurrentConsumeHasOneWinner(t *testing.T) {
	for name, store := range refreshStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "u1", "race", time.Now().Add(time.Hour)))

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, err := store.Consume(ctx, "u1", "race"); err == nil && ok {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins)
		})
	}
}

func TestMemoryRefreshStore_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryRefreshStore(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", "old", now.Add(time.Minute)))
	now = now.Add(2 * time.Minute)

	ok, err := store.Consume(ctx, "u1", "old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRefreshStore_SkipsExpiredSave(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisRefreshStore(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), nil)

	require.NoError(t, store.Save(context.Background(), "u1", "past", time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists(refreshKey("past")))
}

func TestMemoryRefreshStore_SavePrunesExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRefreshStore(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, "u1", fmt.Sprintf("old-%d", i), now.Add(time.Hour)))
	}
	require.NoError(t, store.Save(ctx, "u1", "long", now.Add(48*time.Hour)))
	assert.Len(t, store.entries, 6)

	now = now.Add(2 * time.Hour)
	require.NoError(t, store.Save(ctx, "u2", "fresh", now.Add(time.Hour)))
	assert.Len(t, store.entries, 2)

	ok, err := store.Consume(ctx, "u1", "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

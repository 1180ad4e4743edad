package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *AvailabilityCache {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping Redis integration tests: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return NewAvailabilityCache(client)
}

func TestAvailabilityCache(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	unitID := uuid.NewString()

	t.Run("unknown unit falls through to the ledger", func(t *testing.T) {
		ok, err := cache.Reserve(ctx, uuid.NewString(), 3)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("reserve decrements until exhausted", func(t *testing.T) {
		require.NoError(t, cache.Sync(ctx, unitID, 5))

		ok, err := cache.Reserve(ctx, unitID, 3)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cache.Reserve(ctx, unitID, 3)
		require.NoError(t, err)
		assert.False(t, ok, "only 2 left")

		ok, err = cache.Reserve(ctx, unitID, 2)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("restore returns quantity", func(t *testing.T) {
		require.NoError(t, cache.Sync(ctx, unitID, 0))
		require.NoError(t, cache.Restore(ctx, unitID, 4))

		ok, err := cache.Reserve(ctx, unitID, 4)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cache.Reserve(ctx, unitID, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

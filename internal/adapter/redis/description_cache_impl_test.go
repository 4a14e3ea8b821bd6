package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/alttext-service/pkg/utils"
)

func newTestCache(t *testing.T) (*DescriptionCacheImpl, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return NewDescriptionCache(client), client
}

func TestDescriptionCache_RoundTrip(t *testing.T) {
	cache, client := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	key := utils.HashKey("https://cdn/f1", fmt.Sprint(time.Now().UnixNano()))
	t.Cleanup(func() { client.Del(ctx, descriptionKeyPrefix+key) })

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, key, "A cat on a windowsill.", time.Minute))

	desc, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A cat on a windowsill.", desc)

	ttl, err := client.TTL(ctx, descriptionKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestDescriptionCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cache := NewDescriptionCache(client)

	_, ok, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, cache.Ping(context.Background()))
}

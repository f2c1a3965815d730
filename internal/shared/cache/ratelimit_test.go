package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	client, err := ConnectRedis(addr)
	require.NoError(t, err)
	defer client.Close()

	l := NewRateLimiter(client)
	key := "test:" + uuid.NewString()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiterRestoresMissingTTL(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	client, err := ConnectRedis(addr)
	require.NoError(t, err)
	defer client.Close()

	l := NewRateLimiter(client)
	key := "test:" + uuid.NewString()
	ctx := context.Background()

	// contador que ficou sem TTL (EXPIRE perdido)
	require.NoError(t, client.Set(ctx, l.Prefix+key, 5, 0).Err())

	ok, err := l.Allow(ctx, key, 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := client.PTTL(ctx, l.Prefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

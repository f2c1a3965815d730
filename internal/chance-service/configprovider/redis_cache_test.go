package configprovider

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

// Precisa de um Redis real: REDIS_ADDR_TEST=localhost:6379
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_ReadThrough(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	next := &fakeStore{docs: map[engine.GameType]string{engine.GameCrash: `{"min_bet": 25}`}}
	c := NewRedisCache(client, time.Minute, next, nil)
	require.NoError(t, c.Invalidate(ctx, engine.GameCrash))
	t.Cleanup(func() { _ = c.Invalidate(ctx, engine.GameCrash) })

	p, err := c.GetConfig(ctx, engine.GameCrash)
	require.NoError(t, err)
	require.NotNil(t, p.MinBet)
	assert.Equal(t, int64(25), *p.MinBet)

	p, err = c.GetConfig(ctx, engine.GameCrash)
	require.NoError(t, err)
	assert.Equal(t, int64(25), *p.MinBet)
	assert.Equal(t, 1, next.calls)
}

func TestRedisCache_NotFoundIsNotCached(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	next := &fakeStore{docs: map[engine.GameType]string{}}
	c := NewRedisCache(client, time.Minute, next, nil)
	require.NoError(t, c.Invalidate(ctx, engine.GameLuckyBox))

	_, err := c.GetConfig(ctx, engine.GameLuckyBox)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	_, err = c.GetConfig(ctx, engine.GameLuckyBox)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Equal(t, 2, next.calls)
}

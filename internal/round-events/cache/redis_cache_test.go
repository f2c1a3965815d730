package cache

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/chance-service/history"
)

func TestHistoryCacheInvalidate(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	acct := "acct-" + uuid.NewString()
	require.NoError(t, client.HSet(ctx, history.CacheKey(acct), "crash:50", "[]").Err())

	require.NoError(t, NewHistoryCache(client).Invalidate(ctx, acct))

	n, err := client.Exists(ctx, history.CacheKey(acct)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

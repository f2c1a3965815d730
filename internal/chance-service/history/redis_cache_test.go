package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	rounds []RoundSummary
	calls  int
}

func (r *countingReader) ListRounds(context.Context, string, string, int) ([]RoundSummary, error) {
	r.calls++
	return r.rounds, nil
}

func TestCacheField(t *testing.T) {
	assert.Equal(t, "crash:50", cacheField("crash", 0))
	assert.Equal(t, ":200", cacheField("", 1000))
	assert.Equal(t, "chance:history:a1", CacheKey("a1"))
}

func TestCachedReader(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	acct := "acct-" + uuid.NewString()
	next := &countingReader{rounds: []RoundSummary{{RoundID: "r1", GameType: "crash", State: "settled", Payout: 150}}}
	c := NewCachedReader(next, client, time.Minute, nil)

	first, err := c.ListRounds(ctx, acct, "crash", 10)
	require.NoError(t, err)
	second, err := c.ListRounds(ctx, acct, "crash", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	// outra página é outra entrada do hash
	_, err = c.ListRounds(ctx, acct, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)

	require.NoError(t, client.Del(ctx, CacheKey(acct)).Err())
	_, err = c.ListRounds(ctx, acct, "crash", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

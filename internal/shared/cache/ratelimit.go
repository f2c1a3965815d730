package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter conta requisições por chave numa janela fixa
type RateLimiter struct {
	Client *redis.Client
	Prefix string
}

func NewRateLimiter(c *redis.Client) *RateLimiter {
	return &RateLimiter{Client: c, Prefix: "ratelimit:"}
}

// INCR e PEXPIRE atômicos; chave que ficou sem TTL recebe a janela de novo.
var allowScript = redis.NewScript(`
	local n = redis.call("INCR", KEYS[1])
	if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return n
`)

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := allowScript.Run(ctx, l.Client, []string{l.Prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return count <= int64(limit), nil
}

package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/chance-engine/internal/chance-service/history"
)

// HistoryCache descarta as páginas de histórico em cache de uma conta
// depois que uma rodada dela é gravada em round_history.
type HistoryCache struct {
	Client *redis.Client
}

func NewHistoryCache(c *redis.Client) *HistoryCache { return &HistoryCache{Client: c} }

func (h *HistoryCache) Invalidate(ctx context.Context, accountID string) error {
	return h.Client.Del(ctx, history.CacheKey(accountID)).Err()
}

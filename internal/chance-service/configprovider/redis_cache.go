package configprovider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

// RedisCache é um read-through na frente de outro Store.
// Erros do Redis nunca impedem a leitura do Store de origem.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
	Next   Store
	Log    *zap.Logger
}

func NewRedisCache(c *redis.Client, ttl time.Duration, next Store, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{Client: c, TTL: ttl, Next: next, Log: log}
}

func keyConfig(gt engine.GameType) string { return "chance:config:" + string(gt) }

func (c *RedisCache) GetConfig(ctx context.Context, gt engine.GameType) (engine.PartialConfig, error) {
	b, err := c.Client.Get(ctx, keyConfig(gt)).Bytes()
	if err == nil {
		var p engine.PartialConfig
		if jerr := json.Unmarshal(b, &p); jerr == nil {
			return p, nil
		}
		c.Log.Warn("config cache entry invalid", zap.String("game", string(gt)))
	} else if err != redis.Nil {
		c.Log.Warn("config cache get failed", zap.Error(err))
	}

	p, err := c.Next.GetConfig(ctx, gt)
	if err != nil {
		return p, err
	}

	if b, err := json.Marshal(p); err == nil {
		if err := c.Client.Set(ctx, keyConfig(gt), b, c.TTL).Err(); err != nil {
			c.Log.Warn("config cache set failed", zap.Error(err))
		}
	}
	return p, nil
}

// Invalidate remove a entrada de um jogo, ex: após PutConfig
func (c *RedisCache) Invalidate(ctx context.Context, gt engine.GameType) error {
	return c.Client.Del(ctx, keyConfig(gt)).Err()
}

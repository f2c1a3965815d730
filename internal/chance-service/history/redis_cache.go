package history

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Reader é a fonte do histórico atrás do cache (ReadRepo em produção)
type Reader interface {
	ListRounds(ctx context.Context, accountID, gameType string, limit int) ([]RoundSummary, error)
}

// CacheKey é o hash de páginas de histórico de uma conta. O worker apaga a
// chave inteira quando grava uma rodada da conta.
func CacheKey(accountID string) string { return "chance:history:" + accountID }

func cacheField(gameType string, limit int) string {
	return gameType + ":" + strconv.Itoa(clampLimit(limit))
}

// CachedReader é um read-through em Redis na frente de outro Reader.
// Falhas do Redis só geram log.
type CachedReader struct {
	Next   Reader
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

func NewCachedReader(next Reader, c *redis.Client, ttl time.Duration, log *zap.Logger) *CachedReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedReader{Next: next, Client: c, TTL: ttl, Log: log}
}

func (c *CachedReader) ListRounds(ctx context.Context, accountID, gameType string, limit int) ([]RoundSummary, error) {
	key, field := CacheKey(accountID), cacheField(gameType, limit)

	b, err := c.Client.HGet(ctx, key, field).Bytes()
	if err == nil {
		var out []RoundSummary
		if jerr := json.Unmarshal(b, &out); jerr == nil {
			return out, nil
		}
		c.Log.Warn("history cache entry invalid", zap.String("account_id", accountID))
	} else if err != redis.Nil {
		c.Log.Warn("history cache get failed", zap.Error(err))
	}

	out, err := c.Next.ListRounds(ctx, accountID, gameType, limit)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		pipe := c.Client.TxPipeline()
		pipe.HSet(ctx, key, field, b)
		pipe.Expire(ctx, key, c.TTL)
		if _, err := pipe.Exec(ctx); err != nil {
			c.Log.Warn("history cache set failed", zap.Error(err))
		}
	}
	return out, nil
}

package settlement

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// Debouncer rejeita submissões repetidas da mesma chave dentro da janela.
// Tentativas rejeitadas não estendem a janela.
type Debouncer interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// MemoryDebouncer guarda o último aceite por chave num LRU limitado;
// chaves antigas saem por ordem de uso.
type MemoryDebouncer struct {
	mu   sync.Mutex
	last *lru.Cache
	now  func() time.Time
}

const memoryDebounceKeys = 10_000

func NewMemoryDebouncer(now func() time.Time) *MemoryDebouncer {
	if now == nil {
		now = time.Now
	}
	cache, _ := lru.New(memoryDebounceKeys)
	return &MemoryDebouncer{last: cache, now: now}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.last.Get(key); ok && now.Sub(v.(time.Time)) < window {
		return false, nil
	}
	d.last.Add(key, now)
	return true, nil
}

// RedisDebouncer compartilha a janela entre réplicas (SET NX PX).
type RedisDebouncer struct {
	Client *redis.Client
	Prefix string
}

func NewRedisDebouncer(c *redis.Client) *RedisDebouncer {
	return &RedisDebouncer{Client: c, Prefix: "chance:debounce:"}
}

func (d *RedisDebouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return d.Client.SetNX(ctx, d.Prefix+key, 1, window).Result()
}

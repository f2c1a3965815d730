package settlement

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

// ConfigLoader é satisfeito pelo configprovider.Provider
type ConfigLoader interface {
	Load(ctx context.Context, gt engine.GameType) engine.ChanceConfig
}

type sessionKey struct {
	account string
	game    engine.GameType
}

// Registry mantém um Coordinator por (conta, jogo).
type Registry struct {
	loader ConfigLoader
	deps   Deps

	mu       sync.Mutex
	sessions map[sessionKey]*Coordinator

	OnSessions func(n int) // métricas (gauge)
}

func NewRegistry(loader ConfigLoader, deps Deps) *Registry {
	return &Registry{
		loader:   loader,
		deps:     deps.withDefaults(),
		sessions: make(map[sessionKey]*Coordinator),
	}
}

// Session devolve a sessão existente ou cria uma nova, carregando a
// configuração do jogo nesse momento. Conta como atividade da sessão.
func (r *Registry) Session(ctx context.Context, accountID string, gt engine.GameType) *Coordinator {
	k := sessionKey{account: accountID, game: gt}

	r.mu.Lock()
	if c, ok := r.sessions[k]; ok && !c.Closed() {
		c.touch()
		r.mu.Unlock()
		return c
	}
	r.mu.Unlock()

	cfg := r.loader.Load(ctx, gt)
	c := NewCoordinator(accountID, cfg, r.deps)
	if _, err := c.Refresh(ctx); err != nil {
		r.deps.Log.Warn("session balance refresh failed", zap.String("account_id", accountID), zap.Error(err))
	}

	r.mu.Lock()
	if existing, ok := r.sessions[k]; ok && !existing.Closed() {
		existing.touch()
		r.mu.Unlock()
		return existing
	}
	r.sessions[k] = c
	n := len(r.sessions)
	r.mu.Unlock()

	if r.OnSessions != nil {
		r.OnSessions(n)
	}
	return c
}

// Lookup não cria sessão.
func (r *Registry) Lookup(accountID string, gt engine.GameType) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[sessionKey{account: accountID, game: gt}]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep encerra e descarta sessões paradas há mais de maxIdle. Cada sessão
// é encerrada sob o próprio lock, depois de resolver a rodada em aberto; uma
// sessão usada no meio do caminho ou com estorno que falhou continua no mapa.
func (r *Registry) Sweep(ctx context.Context, maxIdle time.Duration) int {
	now := r.deps.Clock.Now()

	r.mu.Lock()
	stale := make(map[sessionKey]*Coordinator)
	for k, c := range r.sessions {
		if c.IdleFor(now) >= maxIdle {
			stale[k] = c
		}
	}
	r.mu.Unlock()

	swept := 0
	for k, c := range stale {
		closed, err := c.closeIfIdle(ctx, maxIdle)
		if err != nil {
			r.deps.Log.Warn("sweep reset failed",
				zap.String("account_id", c.AccountID()),
				zap.String("game", string(c.GameType())),
				zap.Error(err),
			)
		}
		if !closed {
			continue
		}
		r.mu.Lock()
		if r.sessions[k] == c {
			delete(r.sessions, k)
		}
		r.mu.Unlock()
		swept++
	}
	if swept > 0 && r.OnSessions != nil {
		r.OnSessions(r.Len())
	}
	return swept
}

// RunSweeper roda Sweep a cada interval até o ctx ser cancelado.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(ctx, maxIdle); n > 0 {
				r.deps.Log.Info("idle sessions swept", zap.Int("count", n))
			}
		}
	}
}

// Package configprovider carrega a configuração de cada jogo a partir de um
// armazenamento externo, sempre caindo nos defaults quando algo falha.
package configprovider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

var (
	// ErrConfigUnavailable só aparece em log: Load nunca devolve erro.
	ErrConfigUnavailable = errors.New("config unavailable")
	ErrConfigNotFound    = errors.New("config not found")
)

// Store devolve o documento parcial de um jogo ou ErrConfigNotFound.
type Store interface {
	GetConfig(ctx context.Context, gt engine.GameType) (engine.PartialConfig, error)
}

type Provider struct {
	store   Store
	log     *zap.Logger
	timeout time.Duration

	OnFallback func(gt engine.GameType, reason string)   // métricas
	OnDropped  func(gt engine.GameType, fields []string) // métricas
}

func New(store Store, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{store: store, log: log, timeout: 2 * time.Second}
}

// Load devolve a configuração efetiva: campos remotos válidos sobre os defaults.
// Falha de rede, documento ausente ou JSON inválido resultam no default completo.
func (p *Provider) Load(ctx context.Context, gt engine.GameType) engine.ChanceConfig {
	base := engine.Defaults(gt)
	if p.store == nil {
		return base
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	partial, err := p.store.GetConfig(ctx, gt)
	if err != nil {
		reason := "unavailable"
		if errors.Is(err, ErrConfigNotFound) {
			reason = "not_found"
		}
		p.log.Warn("config fallback to defaults",
			zap.String("game", string(gt)),
			zap.String("reason", reason),
			zap.Error(fmt.Errorf("%w: %v", ErrConfigUnavailable, err)),
		)
		if p.OnFallback != nil {
			p.OnFallback(gt, reason)
		}
		return base
	}

	cfg, dropped := engine.Merge(base, partial)
	if len(dropped) > 0 {
		p.log.Warn("config fields dropped", zap.String("game", string(gt)), zap.Strings("fields", dropped))
		if p.OnDropped != nil {
			p.OnDropped(gt, dropped)
		}
	}
	return cfg
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/history"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	"github.com/radieske/chance-engine/internal/chance-service/ws"
	"github.com/radieske/chance-engine/internal/shared/auth"
)

// HistoryReader é satisfeito por history.ReadRepo e history.Memory
type HistoryReader interface {
	ListRounds(ctx context.Context, accountID, gameType string, limit int) ([]history.RoundSummary, error)
}

// Limiter é satisfeito por cache.RateLimiter
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// API expõe os endpoints REST e o WebSocket dos minigames
type API struct {
	Sessions *settlement.Registry
	Configs  settlement.ConfigLoader
	History  HistoryReader
	Hub      *ws.Hub
	Auth     *auth.Verifier
	Limiter  Limiter // opcional
	Log      *zap.Logger
}

// Router retorna o roteador HTTP; todas as rotas exigem token
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(a.Auth.Middleware)

		r.Get("/ws", a.serveWS)
		r.Get("/v1/history", a.listHistory)

		r.Route("/v1/games/{game}", func(r chi.Router) {
			r.Get("/round", a.getRound)
			r.Get("/config", a.getConfig)

			r.Group(func(r chi.Router) {
				r.Use(a.rateLimit)
				r.Post("/bets", a.placeBet)
				r.Post("/cashout", a.cashOut)  // só crash
				r.Post("/select", a.selectBox) // só luckybox
				r.Post("/reset", a.reset)
			})
		})
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

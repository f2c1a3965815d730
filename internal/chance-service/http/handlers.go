package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/dto"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	"github.com/radieske/chance-engine/internal/shared/auth"
)

// Limites por conta e rota, janela de 1 minuto
var routeLimits = map[string]int{
	"bets":    30,
	"cashout": 60,
	"select":  60,
	"reset":   60,
}

// session resolve (conta, jogo) a partir do token e da rota
func (a *API) session(w http.ResponseWriter, r *http.Request) (*settlement.Coordinator, bool) {
	acct, _ := auth.AccountFrom(r.Context())
	gt, ok := engine.ParseGameType(chi.URLParam(r, "game"))
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "unknown game", Code: "unknown_game"})
		return nil, false
	}
	return a.Sessions.Session(r.Context(), acct, gt), true
}

// withSession executa op na sessão; se o sweep encerrou a sessão entre a busca
// e a operação, repete uma vez numa sessão nova.
func (a *API) withSession(ctx context.Context, sess *settlement.Coordinator, op func(*settlement.Coordinator) (settlement.Snapshot, error)) (settlement.Snapshot, error) {
	snap, err := op(sess)
	if errors.Is(err, settlement.ErrSessionClosed) {
		sess = a.Sessions.Session(ctx, sess.AccountID(), sess.GameType())
		snap, err = op(sess)
	}
	return snap, err
}

// placeBet debita a aposta e inicia a rodada
func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "amount" {
			writeError(w, fmt.Errorf("%w: amount must be an integer", settlement.ErrInvalidAmount), nil)
			return
		}
		badRequest(w, "bad json")
		return
	}
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := a.withSession(r.Context(), sess, func(c *settlement.Coordinator) (settlement.Snapshot, error) {
		return c.PlaceBet(r.Context(), req.Amount)
	})
	if err != nil {
		a.logFailure(r, "place bet", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromSnapshot(snap))
}

// cashOut encerra a rodada de crash no multiplicador atual
func (a *API) cashOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := a.withSession(r.Context(), sess, func(c *settlement.Coordinator) (settlement.Snapshot, error) {
		return c.CashOut(r.Context())
	})
	if err != nil {
		a.logFailure(r, "cash out", err)
		var round *dto.RoundResponse
		if errors.Is(err, settlement.ErrRoundCrashed) {
			rr := dto.FromSnapshot(snap)
			round = &rr
		}
		writeError(w, err, round)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(snap))
}

// selectBox revela a caixa escolhida
func (a *API) selectBox(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Box == nil {
		badRequest(w, "box required")
		return
	}
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := a.withSession(r.Context(), sess, func(c *settlement.Coordinator) (settlement.Snapshot, error) {
		return c.SelectBox(r.Context(), *req.Box)
	})
	if err != nil {
		a.logFailure(r, "select box", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(snap))
}

// reset resolve qualquer rodada aberta e volta a sessão para idle
func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := a.withSession(r.Context(), sess, func(c *settlement.Coordinator) (settlement.Snapshot, error) {
		if err := c.Reset(r.Context()); err != nil {
			return c.Snapshot(), err
		}
		return c.Snapshot(), nil
	})
	if err != nil {
		a.logFailure(r, "reset", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(snap))
}

// getRound retorna o estado atual da sessão, com saldo atualizado do store
func (a *API) getRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Refresh(r.Context()); err != nil {
		a.Log.Warn("balance refresh", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(sess.Snapshot()))
}

// getConfig retorna a configuração da sessão, ou a vigente se não houver sessão
func (a *API) getConfig(w http.ResponseWriter, r *http.Request) {
	acct, _ := auth.AccountFrom(r.Context())
	gt, ok := engine.ParseGameType(chi.URLParam(r, "game"))
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "unknown game", Code: "unknown_game"})
		return
	}
	if sess, found := a.Sessions.Lookup(acct, gt); found {
		writeJSON(w, http.StatusOK, dto.FromConfig(sess.Config()))
		return
	}
	writeJSON(w, http.StatusOK, dto.FromConfig(a.Configs.Load(r.Context(), gt)))
}

// listHistory retorna as últimas rodadas da conta; ?game= filtra por jogo
func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	acct, _ := auth.AccountFrom(r.Context())
	game := r.URL.Query().Get("game")
	if game != "" {
		if _, ok := engine.ParseGameType(game); !ok {
			badRequest(w, "unknown game")
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rounds, err := a.History.ListRounds(r.Context(), acct, game, limit)
	if err != nil {
		a.Log.Error("list history", zap.String("account_id", acct), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (a *API) serveWS(w http.ResponseWriter, r *http.Request) {
	acct, _ := auth.AccountFrom(r.Context())
	a.Hub.Serve(w, r, acct)
}

// rateLimit aplica limites por conta nas rotas de escrita.
// Erro no Redis não bloqueia a jogada.
func (a *API) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		action := lastSegment(r.URL.Path)
		limit, ok := routeLimits[action]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		acct, _ := auth.AccountFrom(r.Context())
		allowed, err := a.Limiter.Allow(r.Context(), acct+":"+action, limit, time.Minute)
		if err != nil {
			a.Log.Warn("rate limit check failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logFailure registra falhas inesperadas; erros de regra do jogo ficam em debug
func (a *API) logFailure(r *http.Request, op string, err error) {
	acct, _ := auth.AccountFrom(r.Context())
	status, _, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Log.Error(op, zap.String("account_id", acct), zap.Error(err))
		return
	}
	a.Log.Debug(op, zap.String("account_id", acct), zap.Error(err))
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

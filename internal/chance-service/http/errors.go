package httpapi

import (
	"errors"
	"net/http"

	"github.com/radieske/chance-engine/internal/chance-service/dto"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorTable = []errorMapping{
	{settlement.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{settlement.ErrInvalidBox, http.StatusBadRequest, "invalid_box"},
	{settlement.ErrWrongGame, http.StatusBadRequest, "wrong_game"},
	{settlement.ErrInsufficientBalance, http.StatusConflict, "insufficient_balance"},
	{settlement.ErrRoundActive, http.StatusConflict, "round_active"},
	{settlement.ErrNoActiveRound, http.StatusConflict, "no_active_round"},
	{settlement.ErrDuplicateSubmission, http.StatusTooManyRequests, "duplicate_submission"},
	{settlement.ErrCashOutTooEarly, http.StatusUnprocessableEntity, "cashout_too_early"},
	{settlement.ErrRoundCrashed, http.StatusUnprocessableEntity, "round_crashed"},
	{settlement.ErrSessionClosed, http.StatusConflict, "session_closed"},
}

// statusFor traduz os sentinelas do coordenador; o resto vira 500.
// Falha de persistência não expõe detalhes: o estorno roda na hora ou na
// próxima operação da sessão.
func statusFor(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error()
		}
	}
	if errors.Is(err, settlement.ErrPersistence) {
		return http.StatusServiceUnavailable, "temporarily_unavailable", "temporarily unavailable, please retry"
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func writeError(w http.ResponseWriter, err error, round *dto.RoundResponse) {
	status, code, msg := statusFor(err)
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code, Round: round})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msg, Code: "bad_request"})
}

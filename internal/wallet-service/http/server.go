package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/wallet-service/dto"
	"github.com/radieske/chance-engine/internal/wallet-service/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error)
	Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error)
	AdjustBalance(ctx context.Context, userID string, delta int64, e repo.LedgerEntry) (int64, error)
	AppendTransaction(ctx context.Context, userID string, e repo.LedgerEntry) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]repo.LedgerEntry, error)
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log  *zap.Logger
	repo Repo
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.getWallet) // ?userId=...
	mux.HandleFunc("POST /wallet/deposit", s.deposit)
	mux.HandleFunc("POST /wallet/adjust", s.adjust)
	mux.HandleFunc("POST /wallet/transactions", s.appendTx)
	mux.HandleFunc("GET /wallet/transactions", s.listTransactions) // ?userId=...&limit=
	return mux
}

// getWallet retorna (ou cria) a carteira e saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		s.log.Error("get wallet", zap.String("user", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: bal})
}

// deposit adiciona saldo à carteira do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	walletID, bal, err := s.repo.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.writeRepoError(w, "deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, BalanceCents: bal})
}

// adjust aplica um delta ao saldo junto com a linha do ledger; 409 se o
// saldo ficaria negativo
func (s *Server) adjust(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" || req.DeltaCents == 0 || (req.Type == "debit") != (req.DeltaCents < 0) {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount := req.DeltaCents
	if amount < 0 {
		amount = -amount
	}
	entry, msg := ledgerEntry(dto.TransactionRequest{
		UserID:      req.UserID,
		TxID:        req.TxID,
		Type:        req.Type,
		AmountCents: amount,
		RoundID:     req.RoundID,
		GameType:    req.GameType,
		Timestamp:   req.Timestamp,
		Metadata:    req.Metadata,
	})
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	bal, err := s.repo.AdjustBalance(r.Context(), req.UserID, req.DeltaCents, entry)
	if err != nil {
		s.writeRepoError(w, "adjust", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, BalanceCents: bal})
}

// appendTx grava no ledger uma transação sem efeito no saldo
func (s *Server) appendTx(w http.ResponseWriter, r *http.Request) {
	var req dto.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	entry, msg := ledgerEntry(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.repo.AppendTransaction(r.Context(), req.UserID, entry); err != nil {
		s.writeRepoError(w, "append tx", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "RECORDED", "tx_id": req.TxID})
}

// ledgerEntry valida a transação; msg != "" indica payload inválido
func ledgerEntry(req dto.TransactionRequest) (repo.LedgerEntry, string) {
	if req.UserID == "" || req.AmountCents < 0 || !validTxType(req.Type) {
		return repo.LedgerEntry{}, "invalid payload"
	}
	if _, err := uuid.Parse(req.TxID); err != nil {
		return repo.LedgerEntry{}, "invalid tx_id"
	}
	entry := repo.LedgerEntry{
		TxID:        req.TxID,
		Type:        ledgerType(req.Type),
		AmountCents: req.AmountCents,
		RoundID:     req.RoundID,
		GameType:    req.GameType,
		Description: req.Type + ":" + req.RoundID,
		Metadata:    req.Metadata,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			return repo.LedgerEntry{}, "invalid timestamp"
		}
		entry.CreatedAt = ts.UTC()
	}
	return entry, ""
}

// listTransactions retorna o extrato recente do usuário
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.repo.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		s.writeRepoError(w, "list tx", err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.TransactionResponse{
			TxID:        e.TxID,
			Type:        e.Type,
			AmountCents: e.AmountCents,
			RoundID:     e.RoundID,
			GameType:    e.GameType,
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeRepoError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient funds")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "wallet not found")
	default:
		s.log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func validTxType(t string) bool {
	return t == "debit" || t == "credit" || t == "refund"
}

// ledgerType segue a convenção em maiúsculas de operation_type
func ledgerType(t string) string {
	switch t {
	case "debit":
		return "DEBIT"
	case "credit":
		return "CREDIT"
	default:
		return "REFUND"
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

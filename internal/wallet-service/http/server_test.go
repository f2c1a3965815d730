package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/wallet-service/repo"
)

type memRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	ledger   map[string][]repo.LedgerEntry
	seen     map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[string]int64{}, ledger: map[string][]repo.LedgerEntry{}, seen: map[string]bool{}}
}

func (m *memRepo) GetOrCreateWallet(_ context.Context, userID string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = 0
	}
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) Deposit(_ context.Context, userID string, amount int64, _ string) (string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return "", 0, repo.ErrNotFound
	}
	m.balances[userID] += amount
	return "w-" + userID, m.balances[userID], nil
}

func (m *memRepo) AdjustBalance(_ context.Context, userID string, delta int64, e repo.LedgerEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	if m.seen[e.TxID] {
		return bal, nil
	}
	if bal+delta < 0 {
		return 0, repo.ErrInsufficientFunds
	}
	m.balances[userID] = bal + delta
	m.seen[e.TxID] = true
	m.ledger[userID] = append(m.ledger[userID], e)
	return bal + delta, nil
}

func (m *memRepo) AppendTransaction(_ context.Context, userID string, e repo.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		return repo.ErrNotFound
	}
	m.ledger[userID] = append(m.ledger[userID], e)
	return nil
}

func (m *memRepo) ListTransactions(_ context.Context, userID string, _ int) ([]repo.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repo.LedgerEntry(nil), m.ledger[userID]...), nil
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWalletFlow(t *testing.T) {
	r := newMemRepo()
	h := NewServer(zap.NewNop(), r).Router()

	rec := do(t, h, http.MethodGet, "/wallet?userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"u1","walletId":"w-u1","balance_cents":0}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/wallet/deposit", `{"userId":"u1","amount_cents":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	debit := `{"userId":"u1","delta_cents":-400,"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit","round_id":"r1"}`
	rec = do(t, h, http.MethodPost, "/wallet/adjust", debit)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Balance int64 `json:"balance_cents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(600), resp.Balance)

	// mesmo tx_id de novo: resposta com o saldo atual, sem novo débito
	rec = do(t, h, http.MethodPost, "/wallet/adjust", debit)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(600), resp.Balance)
	require.Len(t, r.ledger["u1"], 1)
	assert.Equal(t, "DEBIT", r.ledger["u1"][0].Type)
	assert.Equal(t, int64(400), r.ledger["u1"][0].AmountCents)

	rec = do(t, h, http.MethodPost, "/wallet/adjust",
		`{"userId":"u1","delta_cents":-601,"tx_id":"9f0c7e2a-6a51-4b6e-9d55-2f6b0c9f7a10","type":"debit"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int64(600), r.balances["u1"])
	assert.Len(t, r.ledger["u1"], 1)
}

func TestAdjustValidation(t *testing.T) {
	r := newMemRepo()
	r.balances["u1"] = 100
	h := NewServer(zap.NewNop(), r).Router()

	cases := map[string]string{
		"no tx id":        `{"userId":"u1","delta_cents":-10,"type":"debit"}`,
		"debit positive":  `{"userId":"u1","delta_cents":10,"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit"}`,
		"refund negative": `{"userId":"u1","delta_cents":-10,"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"refund"}`,
		"zero delta":      `{"userId":"u1","delta_cents":0,"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"credit"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/wallet/adjust", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, int64(100), r.balances["u1"])
}

func TestAdjustUnknownWallet(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()
	rec := do(t, h, http.MethodPost, "/wallet/adjust",
		`{"userId":"ghost","delta_cents":10,"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"credit"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppendTransaction(t *testing.T) {
	r := newMemRepo()
	r.balances["u1"] = 100
	h := NewServer(zap.NewNop(), r).Router()

	body := `{"userId":"u1","tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit","amount_cents":100,` +
		`"round_id":"r1","game_type":"crash","timestamp":"2026-01-02T03:04:05Z","metadata":{"k":"v"}}`
	rec := do(t, h, http.MethodPost, "/wallet/transactions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, r.ledger["u1"], 1)
	e := r.ledger["u1"][0]
	assert.Equal(t, "DEBIT", e.Type)
	assert.Equal(t, "r1", e.RoundID)
	assert.Equal(t, "v", e.Metadata["k"])
	assert.Equal(t, 2026, e.CreatedAt.Year())

	rec = do(t, h, http.MethodGet, "/wallet/transactions?userId=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962"`)
}

func TestAppendTransactionValidation(t *testing.T) {
	r := newMemRepo()
	r.balances["u1"] = 0
	h := NewServer(zap.NewNop(), r).Router()

	cases := map[string]string{
		"bad json":   `{`,
		"bad type":   `{"userId":"u1","tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"bonus","amount_cents":1}`,
		"bad tx id":  `{"userId":"u1","tx_id":"nope","type":"debit","amount_cents":1}`,
		"negative":   `{"userId":"u1","tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit","amount_cents":-1}`,
		"bad ts":     `{"userId":"u1","tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit","amount_cents":1,"timestamp":"ontem"}`,
		"no user id": `{"tx_id":"3b241101-e2bb-4255-8caf-4136c566a962","type":"debit","amount_cents":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/wallet/transactions", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, r.ledger["u1"])
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()
	rec := do(t, h, http.MethodDelete, "/wallet?userId=u1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	walletdto "github.com/radieske/chance-engine/internal/wallet-service/dto"
)

// HTTPStore usa o wallet-service remoto como dono do saldo
type HTTPStore struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPStore(base string) *HTTPStore {
	return &HTTPStore{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *HTTPStore) GetBalance(ctx context.Context, accountID string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/wallet?userId="+url.QueryEscape(accountID), nil)
	if err != nil {
		return 0, err
	}
	var out walletdto.WalletResponse
	if err := c.do(req, &out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

// AdjustBalance envia o tx_id junto: a wallet aplica saldo e ledger na mesma
// transação e ignora reenvios do mesmo tx_id.
func (c *HTTPStore) AdjustBalance(ctx context.Context, accountID string, delta int64, tx settlement.Transaction) (int64, error) {
	body := walletdto.AdjustRequest{
		UserID:     accountID,
		DeltaCents: delta,
		TxID:       tx.ID,
		Type:       string(tx.Type),
		RoundID:    tx.RoundID,
		GameType:   string(tx.GameType),
		Metadata:   tx.Metadata,
	}
	if !tx.Timestamp.IsZero() {
		body.Timestamp = tx.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	var out walletdto.WalletResponse
	if err := c.post(ctx, "/wallet/adjust", body, &out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

func (c *HTTPStore) AppendTransaction(ctx context.Context, accountID string, tx settlement.Transaction) error {
	body := walletdto.TransactionRequest{
		UserID:      accountID,
		TxID:        tx.ID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount,
		RoundID:     tx.RoundID,
		GameType:    string(tx.GameType),
		Metadata:    tx.Metadata,
	}
	if !tx.Timestamp.IsZero() {
		body.Timestamp = tx.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return c.post(ctx, "/wallet/transactions", body, nil)
}

func (c *HTTPStore) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPStore) do(req *http.Request, out any) error {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return settlement.ErrInsufficientBalance
	}
	if res.StatusCode >= 300 {
		var e walletdto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return fmt.Errorf("wallet %s %s http %d: %s", req.Method, req.URL.Path, res.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

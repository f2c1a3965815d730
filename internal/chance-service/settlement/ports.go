package settlement

import (
	"context"
	"time"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

type TxType string

const (
	TxDebit  TxType = "debit"
	TxCredit TxType = "credit"
	TxRefund TxType = "refund"
)

// Transaction é um registro do ledger. Só é inserido, nunca alterado.
type Transaction struct {
	ID        string            `json:"id"`
	Type      TxType            `json:"type"`
	Amount    int64             `json:"amount"`
	RoundID   string            `json:"round_id"`
	GameType  engine.GameType   `json:"game_type"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AccountStore é o dono do saldo e do histórico de transações.
//
// AdjustBalance aplica delta e grava tx no ledger numa única operação
// atômica, idempotente por tx.ID: repetir a chamada com o mesmo tx.ID não
// move o saldo de novo e devolve o saldo atual. Saldo que ficaria negativo
// resulta em ErrInsufficientBalance, sem alterar nada.
//
// AppendTransaction grava registros sem efeito no saldo (crédito de asset),
// também idempotente por tx.ID.
type AccountStore interface {
	GetBalance(ctx context.Context, accountID string) (int64, error)
	AdjustBalance(ctx context.Context, accountID string, delta int64, tx Transaction) (int64, error)
	AppendTransaction(ctx context.Context, accountID string, tx Transaction) error
}

// AssetCatalog fornece os assets que podem sair numa caixa.
type AssetCatalog interface {
	ListAssets(ctx context.Context, pr engine.PriceRange) ([]engine.Asset, error)
	GrantAsset(ctx context.Context, accountID, assetID, roundID string) error
	RevokeAsset(ctx context.Context, accountID, assetID, roundID string) error
}

// Notifier recebe as transições de estado das rodadas.
type Notifier interface {
	Notify(ctx context.Context, ev events.RoundEvent)
}

type NotifierFunc func(ctx context.Context, ev events.RoundEvent)

func (f NotifierFunc) Notify(ctx context.Context, ev events.RoundEvent) { f(ctx, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, events.RoundEvent) {}

// Hooks são callbacks opcionais para métricas
type Hooks struct {
	OnBet          func(gt engine.GameType, amount int64)
	OnSettled      func(gt engine.GameType, result string, payout int64)
	OnCompensation func(gt engine.GameType, stage string, ok bool)
	OnDuplicate    func(gt engine.GameType)
}

package events

import "time"

// Estados publicados no tópico "round_events"
const (
	StateIdle      = "idle"
	StateBetPlaced = "bet_placed"
	StateRevealing = "revealing"
	StateSettled   = "settled"

	// estorno falhou e aguarda nova tentativa
	StateRefundPending = "refund_pending"
)

// Resultados de uma rodada liquidada
const (
	ResultWin    = "win"
	ResultLoss   = "loss"
	ResultAsset  = "asset"
	ResultRefund = "refund"
)

// Loot é o conteúdo revelado de uma caixa
type Loot struct {
	Type       string  `json:"type"` // "coins" | "asset"
	Coins      int64   `json:"coins,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	AssetID    string  `json:"asset_id,omitempty"`
	AssetName  string  `json:"asset_name,omitempty"`
	AssetPrice int64   `json:"asset_price,omitempty"`
}

// RoundEvent é emitido a cada transição de estado de uma rodada.
// CrashPoint e Loot só são preenchidos quando State == "settled".
type RoundEvent struct {
	EventID    string    `json:"event_id"`
	RoundID    string    `json:"round_id"`
	AccountID  string    `json:"account_id"`
	GameType   string    `json:"game_type"` // "crash" | "luckybox"
	State      string    `json:"state"`
	Result     string    `json:"result,omitempty"`
	BetAmount  int64     `json:"bet_amount"`
	Payout     int64     `json:"payout"`
	Multiplier float64   `json:"multiplier,omitempty"` // multiplicador do cash-out
	CrashPoint *float64  `json:"crash_point,omitempty"`
	Loot       *Loot     `json:"loot,omitempty"`
	Display    []Loot    `json:"display,omitempty"` // caixas não escolhidas, sem efeito econômico
	Balance    int64     `json:"balance"`
	StartedAt  time.Time `json:"started_at"`
	Ts         time.Time `json:"ts"`
	Version    int       `json:"version"` // incrementado a cada transição da rodada
}

// HistoryState é o estado que o evento grava no histórico, ou "" se não grava.
// A volta para idle só importa quando a rodada foi estornada.
func (e RoundEvent) HistoryState() string {
	if e.RoundID == "" {
		return ""
	}
	if e.State == StateIdle {
		if e.Result == ResultRefund {
			return StateSettled
		}
		return ""
	}
	return e.State
}

package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// State segue idle -> bet_placed -> revealing -> settled -> idle.
// A volta para idle só acontece via Reset (ou num estorno). Estorno que não
// conclui deixa a sessão em refund_pending, com a rodada preservada.
type State string

const (
	StateIdle      State = events.StateIdle
	StateBetPlaced State = events.StateBetPlaced
	StateRevealing State = events.StateRevealing
	StateSettled   State = events.StateSettled

	StateRefundPending State = events.StateRefundPending
)

// Round existe só em memória, dentro do Coordinator.
type Round struct {
	ID         string
	GameType   engine.GameType
	BetAmount  int64
	Outcome    engine.Outcome
	StartTime  time.Time
	SettledAt  time.Time
	Result     string
	Payout     int64
	Multiplier float64 // crash: multiplicador do cash-out
	Box        int     // lucky box: caixa escolhida, -1 antes da escolha
	Display    []engine.LootOutcome
}

// Snapshot é a visão pública de uma sessão. O resultado comprometido
// (crash point, conteúdo da caixa) só aparece depois da liquidação.
type Snapshot struct {
	AccountID  string               `json:"account_id"`
	GameType   engine.GameType      `json:"game_type"`
	State      State                `json:"state"`
	RoundID    string               `json:"round_id,omitempty"`
	BetAmount  int64                `json:"bet_amount,omitempty"`
	StartedAt  time.Time            `json:"started_at,omitempty"`
	Elapsed    time.Duration        `json:"elapsed,omitempty"`
	Multiplier float64              `json:"multiplier,omitempty"`
	CrashPoint *float64             `json:"crash_point,omitempty"`
	Loot       *engine.LootOutcome  `json:"loot,omitempty"`
	Box        *int                 `json:"box,omitempty"`
	Display    []engine.LootOutcome `json:"display,omitempty"`
	Result     string               `json:"result,omitempty"`
	Payout     int64                `json:"payout,omitempty"`
	Balance    int64                `json:"balance"`
}

func (c *Coordinator) snapshotLocked() Snapshot {
	s := Snapshot{
		AccountID: c.accountID,
		GameType:  c.cfg.GameType,
		State:     c.state,
		Balance:   c.balance,
	}
	r := c.round
	if r == nil {
		return s
	}

	s.RoundID = r.ID
	s.BetAmount = r.BetAmount
	s.StartedAt = r.StartTime
	s.Result = r.Result
	s.Payout = r.Payout
	if r.Box >= 0 {
		box := r.Box
		s.Box = &box
	}

	switch c.state {
	case StateRevealing:
		if r.Outcome.Crash != nil {
			s.Elapsed = c.d.Clock.Now().Sub(r.StartTime)
			m := engine.MultiplierAt(s.Elapsed, c.cfg.RisePerSecond)
			if m > r.Outcome.Crash.CrashPoint {
				m = r.Outcome.Crash.CrashPoint
			}
			s.Multiplier = m
		}
	case StateSettled:
		s.Multiplier = r.Multiplier
		if r.Outcome.Crash != nil {
			cp := r.Outcome.Crash.CrashPoint
			s.CrashPoint = &cp
		}
		if r.Outcome.Loot != nil {
			l := *r.Outcome.Loot
			s.Loot = &l
			s.Display = append([]engine.LootOutcome(nil), r.Display...)
		}
	}
	return s
}

// toEvent segue a mesma regra do Snapshot: nada do resultado antes de settled.
func (s Snapshot) toEvent(version int, now time.Time) events.RoundEvent {
	ev := events.RoundEvent{
		EventID:    uuid.NewString(),
		RoundID:    s.RoundID,
		AccountID:  s.AccountID,
		GameType:   string(s.GameType),
		State:      string(s.State),
		Result:     s.Result,
		BetAmount:  s.BetAmount,
		Payout:     s.Payout,
		Multiplier: s.Multiplier,
		CrashPoint: s.CrashPoint,
		Balance:    s.Balance,
		StartedAt:  s.StartedAt,
		Ts:         now,
		Version:    version,
	}
	if s.Loot != nil {
		l := lootEvent(*s.Loot)
		ev.Loot = &l
	}
	for _, d := range s.Display {
		ev.Display = append(ev.Display, lootEvent(d))
	}
	return ev
}

func lootEvent(l engine.LootOutcome) events.Loot {
	out := events.Loot{Type: string(l.Type), Coins: l.Coins, Multiplier: l.Multiplier}
	if l.Asset != nil {
		out.AssetID = l.Asset.ID
		out.AssetName = l.Asset.Name
		out.AssetPrice = l.Asset.Price
	}
	return out
}

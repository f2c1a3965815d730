package history

import (
	"context"
	"sync"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// Memory guarda o histórico recente por conta, direto dos eventos do
// coordenador. Substitui round_history quando não há Postgres.
type Memory struct {
	mu     sync.Mutex
	max    int
	rounds map[string][]RoundSummary // accountID -> mais recente por último
}

func NewMemory(maxPerAccount int) *Memory {
	if maxPerAccount <= 0 {
		maxPerAccount = 200
	}
	return &Memory{max: maxPerAccount, rounds: make(map[string][]RoundSummary)}
}

// Notify aplica o evento; versões antigas da mesma rodada são ignoradas.
func (m *Memory) Notify(_ context.Context, ev events.RoundEvent) {
	state := ev.HistoryState()
	if state == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.rounds[ev.AccountID]
	for i := range list {
		if list[i].RoundID == ev.RoundID {
			list[i] = apply(list[i], ev, state)
			return
		}
	}
	list = append(list, apply(RoundSummary{RoundID: ev.RoundID}, ev, state))
	if len(list) > m.max {
		list = list[len(list)-m.max:]
	}
	m.rounds[ev.AccountID] = list
}

func (m *Memory) ListRounds(_ context.Context, accountID, gameType string, limit int) ([]RoundSummary, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.rounds[accountID]
	out := make([]RoundSummary, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		if gameType != "" && list[i].GameType != gameType {
			continue
		}
		out = append(out, list[i])
	}
	return out, nil
}

func apply(s RoundSummary, ev events.RoundEvent, state string) RoundSummary {
	if s.version >= ev.Version && s.version > 0 {
		return s
	}
	s.version = ev.Version
	s.GameType = ev.GameType
	s.State = state
	s.Result = ev.Result
	s.BetAmount = ev.BetAmount
	s.Payout = ev.Payout
	s.Multiplier = ev.Multiplier
	s.CrashPoint = ev.CrashPoint
	s.Loot = ev.Loot
	s.StartedAt = ev.StartedAt
	s.UpdatedAt = ev.Ts
	return s
}

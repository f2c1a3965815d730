package dto

import (
	"time"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
)

type RoundResponse struct {
	AccountID  string               `json:"account_id"`
	GameType   string               `json:"game_type"`
	State      string               `json:"state"`
	RoundID    string               `json:"round_id,omitempty"`
	BetAmount  int64                `json:"bet_amount,omitempty"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	ElapsedMs  int64                `json:"elapsed_ms,omitempty"`
	Multiplier float64              `json:"multiplier,omitempty"`
	CrashPoint *float64             `json:"crash_point,omitempty"`
	Loot       *engine.LootOutcome  `json:"loot,omitempty"`
	Box        *int                 `json:"box,omitempty"`
	Display    []engine.LootOutcome `json:"display,omitempty"`
	Result     string               `json:"result,omitempty"`
	Payout     int64                `json:"payout,omitempty"`
	Balance    int64                `json:"balance"`
}

func FromSnapshot(s settlement.Snapshot) RoundResponse {
	out := RoundResponse{
		AccountID:  s.AccountID,
		GameType:   string(s.GameType),
		State:      string(s.State),
		RoundID:    s.RoundID,
		BetAmount:  s.BetAmount,
		ElapsedMs:  s.Elapsed.Milliseconds(),
		Multiplier: s.Multiplier,
		CrashPoint: s.CrashPoint,
		Loot:       s.Loot,
		Box:        s.Box,
		Display:    s.Display,
		Result:     s.Result,
		Payout:     s.Payout,
		Balance:    s.Balance,
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt.UTC()
		out.StartedAt = &t
	}
	return out
}

// ConfigResponse expõe a configuração efetiva (durações em ms)
type ConfigResponse struct {
	GameType              string        `json:"game_type"`
	MinBet                int64         `json:"min_bet"`
	MaxBet                int64         `json:"max_bet"`
	HouseEdge             float64       `json:"house_edge"`
	MaxMultiplier         float64       `json:"max_multiplier"`
	Tiers                 []engine.Tier `json:"tiers,omitempty"`
	AssetChance           float64       `json:"asset_chance,omitempty"`
	AssetPriceMinMultiple float64       `json:"asset_price_min_multiple,omitempty"`
	AssetPriceMaxMultiple float64       `json:"asset_price_max_multiple,omitempty"`
	BoxCount              int           `json:"box_count,omitempty"`
	RisePerSecond         float64       `json:"rise_per_second,omitempty"`
	MinRoundDurationMs    int64         `json:"min_round_duration_ms,omitempty"`
	DebounceWindowMs      int64         `json:"debounce_window_ms"`
}

func FromConfig(c engine.ChanceConfig) ConfigResponse {
	return ConfigResponse{
		GameType:              string(c.GameType),
		MinBet:                c.MinBet,
		MaxBet:                c.MaxBet,
		HouseEdge:             c.HouseEdge,
		MaxMultiplier:         c.MaxMultiplier,
		Tiers:                 c.Tiers,
		AssetChance:           c.AssetChance,
		AssetPriceMinMultiple: c.AssetPriceMinMultiple,
		AssetPriceMaxMultiple: c.AssetPriceMaxMultiple,
		BoxCount:              c.BoxCount,
		RisePerSecond:         c.RisePerSecond,
		MinRoundDurationMs:    c.MinRoundDuration.Milliseconds(),
		DebounceWindowMs:      c.DebounceWindow.Milliseconds(),
	}
}

type ErrorResponse struct {
	Error string         `json:"error"`
	Code  string         `json:"code"`
	Round *RoundResponse `json:"round,omitempty"`
}

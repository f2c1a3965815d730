package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// RoundSummary é uma linha do histórico de rodadas da conta
type RoundSummary struct {
	RoundID    string       `json:"round_id"`
	GameType   string       `json:"game_type"`
	State      string       `json:"state"`
	Result     string       `json:"result,omitempty"`
	BetAmount  int64        `json:"bet_amount"`
	Payout     int64        `json:"payout"`
	Multiplier float64      `json:"multiplier,omitempty"`
	CrashPoint *float64     `json:"crash_point,omitempty"`
	Loot       *events.Loot `json:"loot,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	version int
}

// ReadRepo lê round_history, alimentada pelo round-events-worker
type ReadRepo struct {
	DB *sql.DB
}

func (r *ReadRepo) ListRounds(ctx context.Context, accountID, gameType string, limit int) ([]RoundSummary, error) {
	const q = `
		SELECT round_id, game_type, state, COALESCE(result,''), bet_cents, payout,
		       COALESCE(multiplier,0), crash_point, loot, started_at, updated_at
		FROM round_history
		WHERE user_id = $1 AND ($2 = '' OR game_type = $2)
		ORDER BY started_at DESC
		LIMIT $3;
	`
	rows, err := r.DB.QueryContext(ctx, q, accountID, gameType, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundSummary
	for rows.Next() {
		var s RoundSummary
		var cp sql.NullFloat64
		var loot []byte
		if err := rows.Scan(&s.RoundID, &s.GameType, &s.State, &s.Result, &s.BetAmount, &s.Payout,
			&s.Multiplier, &cp, &loot, &s.StartedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if cp.Valid {
			v := cp.Float64
			s.CrashPoint = &v
		}
		if len(loot) > 0 {
			var l events.Loot
			if err := json.Unmarshal(loot, &l); err == nil {
				s.Loot = &l
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

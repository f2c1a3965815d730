package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

// PostgresRepo mantém round_history, uma linha por rodada
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertRound grava o estado da rodada. Eventos fora de ordem (versão menor
// ou igual à gravada) não alteram a linha; applied informa se houve escrita.
func (r *PostgresRepo) UpsertRound(ctx context.Context, e events.RoundEvent, state string) (applied bool, err error) {
	var loot []byte
	if e.Loot != nil {
		if loot, err = json.Marshal(e.Loot); err != nil {
			return false, err
		}
	}

	const q = `
		INSERT INTO round_history
		  (round_id, user_id, game_type, state, result, bet_cents, payout, multiplier, crash_point, loot, started_at, updated_at, version)
		VALUES
		  ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (round_id) DO UPDATE SET
		  state       = EXCLUDED.state,
		  result      = EXCLUDED.result,
		  payout      = EXCLUDED.payout,
		  multiplier  = EXCLUDED.multiplier,
		  crash_point = EXCLUDED.crash_point,
		  loot        = EXCLUDED.loot,
		  updated_at  = EXCLUDED.updated_at,
		  version     = EXCLUDED.version
		WHERE round_history.version < EXCLUDED.version
	`
	res, err := r.DB.ExecContext(ctx, q,
		e.RoundID, e.AccountID, e.GameType, state, e.Result,
		e.BetAmount, e.Payout, e.Multiplier, e.CrashPoint, nullJSON(loot),
		e.StartedAt, e.Ts, e.Version,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

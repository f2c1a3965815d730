package configprovider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

// PostgresStore lê game_configs(game_type, payload jsonb)
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

func (s *PostgresStore) GetConfig(ctx context.Context, gt engine.GameType) (engine.PartialConfig, error) {
	const q = `SELECT payload FROM game_configs WHERE game_type = $1`

	var raw []byte
	if err := s.DB.QueryRowContext(ctx, q, string(gt)).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.PartialConfig{}, ErrConfigNotFound
		}
		return engine.PartialConfig{}, fmt.Errorf("select game_config: %w", err)
	}

	var p engine.PartialConfig
	if err := json.Unmarshal(raw, &p); err != nil {
		return engine.PartialConfig{}, fmt.Errorf("decode game_config: %w", err)
	}
	return p, nil
}

// PutConfig grava (ou substitui) o documento de um jogo
func (s *PostgresStore) PutConfig(ctx context.Context, gt engine.GameType, p engine.PartialConfig) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO game_configs (game_type, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (game_type) DO UPDATE SET
		  payload    = EXCLUDED.payload,
		  updated_at = EXCLUDED.updated_at
	`
	_, err = s.DB.ExecContext(ctx, q, string(gt), b)
	return err
}

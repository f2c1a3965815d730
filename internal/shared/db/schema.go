package db

import (
	"context"
	"database/sql"
	"fmt"
)

// statements cria as tabelas usadas pelos serviços. Idempotente.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id            UUID PRIMARY KEY,
		user_id       TEXT NOT NULL UNIQUE,
		balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		version       INT NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id             BIGSERIAL PRIMARY KEY,
		tx_id          UUID NOT NULL UNIQUE,
		wallet_id      UUID NOT NULL REFERENCES wallets(id),
		operation_type TEXT NOT NULL,
		amount_cents   BIGINT NOT NULL,
		round_id       TEXT,
		game_type      TEXT,
		description    TEXT,
		metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_ledger_wallet_idx ON wallet_ledger(wallet_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS game_configs (
		game_type  TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_assets (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents > 0),
		active      BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS catalog_assets_price_idx ON catalog_assets(price_cents) WHERE active`,
	`CREATE TABLE IF NOT EXISTS asset_grants (
		round_id   TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		asset_id   TEXT NOT NULL REFERENCES catalog_assets(id),
		granted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS round_history (
		round_id    TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		game_type   TEXT NOT NULL,
		state       TEXT NOT NULL,
		result      TEXT,
		bet_cents   BIGINT NOT NULL,
		payout      BIGINT NOT NULL DEFAULT 0,
		multiplier  DOUBLE PRECISION,
		crash_point DOUBLE PRECISION,
		loot        JSONB,
		started_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		version     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS round_history_user_idx ON round_history(user_id, started_at DESC)`,
}

// Migrate aplica o schema. Cada statement roda isolado para facilitar o diagnóstico.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

var ErrAlreadyGranted = errors.New("round already granted an asset")

// Postgres lê catalog_assets e registra concessões em asset_grants
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

func (p *Postgres) ListAssets(ctx context.Context, pr engine.PriceRange) ([]engine.Asset, error) {
	const q = `
		SELECT id, name, price_cents
		  FROM catalog_assets
		 WHERE active AND price_cents BETWEEN $1 AND $2
		 ORDER BY price_cents, id`

	rows, err := p.DB.QueryContext(ctx, q, pr.Min, pr.Max)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []engine.Asset
	for rows.Next() {
		var a engine.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GrantAsset é idempotente por rodada: repetir com o mesmo asset não falha.
func (p *Postgres) GrantAsset(ctx context.Context, accountID, assetID, roundID string) error {
	const q = `
		INSERT INTO asset_grants (round_id, user_id, asset_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (round_id) DO NOTHING`

	res, err := p.DB.ExecContext(ctx, q, roundID, accountID, assetID)
	if err != nil {
		return fmt.Errorf("grant asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var existing string
	if err := p.DB.QueryRowContext(ctx, `SELECT asset_id FROM asset_grants WHERE round_id=$1`, roundID).Scan(&existing); err != nil {
		return fmt.Errorf("grant asset: %w", err)
	}
	if existing != assetID {
		return ErrAlreadyGranted
	}
	return nil
}

func (p *Postgres) RevokeAsset(ctx context.Context, accountID, assetID, roundID string) error {
	const q = `DELETE FROM asset_grants WHERE round_id=$1 AND user_id=$2 AND asset_id=$3`
	if _, err := p.DB.ExecContext(ctx, q, roundID, accountID, assetID); err != nil {
		return fmt.Errorf("revoke asset: %w", err)
	}
	return nil
}

// Upsert cadastra ou atualiza um asset (usado pelo seed)
func (p *Postgres) Upsert(ctx context.Context, a engine.Asset) error {
	const q = `
		INSERT INTO catalog_assets (id, name, price_cents, active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (id) DO UPDATE SET
		  name        = EXCLUDED.name,
		  price_cents = EXCLUDED.price_cents,
		  active      = true`
	_, err := p.DB.ExecContext(ctx, q, a.ID, a.Name, a.Price)
	return err
}

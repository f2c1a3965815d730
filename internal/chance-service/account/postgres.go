package account

import (
	"context"
	"errors"
	"strings"

	"github.com/radieske/chance-engine/internal/chance-service/settlement"
	"github.com/radieske/chance-engine/internal/wallet-service/repo"
)

// PostgresStore fala direto com as tabelas da wallet, no mesmo processo.
type PostgresStore struct {
	Repo *repo.Postgres
}

func NewPostgresStore(r *repo.Postgres) *PostgresStore { return &PostgresStore{Repo: r} }

func (s *PostgresStore) GetBalance(ctx context.Context, accountID string) (int64, error) {
	_, bal, err := s.Repo.GetOrCreateWallet(ctx, accountID)
	return bal, err
}

func (s *PostgresStore) AdjustBalance(ctx context.Context, accountID string, delta int64, tx settlement.Transaction) (int64, error) {
	bal, err := s.Repo.AdjustBalance(ctx, accountID, delta, ledgerEntry(tx))
	if errors.Is(err, repo.ErrInsufficientFunds) {
		return 0, settlement.ErrInsufficientBalance
	}
	return bal, err
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, accountID string, tx settlement.Transaction) error {
	return s.Repo.AppendTransaction(ctx, accountID, ledgerEntry(tx))
}

func ledgerEntry(tx settlement.Transaction) repo.LedgerEntry {
	return repo.LedgerEntry{
		TxID:        tx.ID,
		Type:        strings.ToUpper(string(tx.Type)),
		AmountCents: tx.Amount,
		RoundID:     tx.RoundID,
		GameType:    string(tx.GameType),
		Description: string(tx.Type) + ":" + tx.RoundID,
		Metadata:    tx.Metadata,
		CreatedAt:   tx.Timestamp,
	}
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// LedgerEntry é uma linha de wallet_ledger. O ledger só recebe INSERT.
type LedgerEntry struct {
	TxID        string
	Type        string // DEPOSIT | DEBIT | CREDIT | REFUND
	AmountCents int64
	RoundID     string
	GameType    string
	Description string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	var id string
	var bal int64
	err = tx.QueryRowContext(ctx, `SELECT id, balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&id, &bal)
	if errors.Is(err, sql.ErrNoRows) {
		id = uuid.New().String()
		// ON CONFLICT cobre duas criações concorrentes para o mesmo usuário
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id, balance_cents`,
			id, userID).Scan(&id, &bal); err != nil {
			return "", 0, err
		}
	} else if err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}

	return id, bal, nil
}

// Deposit incrementa o saldo da carteira e registra a operação no ledger
// Garante lock pessimista na linha da carteira
func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	var id string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1, updated_at = now() WHERE id=$2 RETURNING balance_cents`,
		amount, id).Scan(&newBalance); err != nil {
		return "", 0, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO wallet_ledger(tx_id, wallet_id, operation_type, amount_cents, description) VALUES($1,$2,'DEPOSIT',$3,$4)`,
		uuid.New().String(), id, amount, "deposit:"+externalRef); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return id, newBalance, nil
}

// AdjustBalance aplica delta e insere a linha do ledger na mesma transação,
// com lock pessimista na carteira. Idempotente por e.TxID: se o tx_id já está
// no ledger, devolve o saldo atual sem aplicar o delta de novo.
func (p *Postgres) AdjustBalance(ctx context.Context, userID string, delta int64, e LedgerEntry) (int64, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return 0, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id string
	var bal int64
	if err = tx.QueryRowContext(ctx, `SELECT id, balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id, &bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	var applied bool
	if err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallet_ledger WHERE tx_id=$1)`, e.TxID).Scan(&applied); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if applied {
		return bal, nil
	}
	if bal+delta < 0 {
		return 0, ErrInsufficientFunds
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1, updated_at = now() WHERE id=$2 RETURNING balance_cents`,
		delta, id).Scan(&bal); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(tx_id, wallet_id, operation_type, amount_cents, round_id, game_type, description, metadata, created_at)
		VALUES($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7,$8,$9)`,
		e.TxID, id, e.Type, e.AmountCents, e.RoundID, e.GameType, e.Description, meta, e.CreatedAt); err != nil {
		return 0, fmt.Errorf("append ledger: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// AppendTransaction insere no ledger. Reenvio do mesmo tx_id é ignorado.
func (p *Postgres) AppendTransaction(ctx context.Context, userID string, e LedgerEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := p.db.ExecContext(ctx, `
		INSERT INTO wallet_ledger(tx_id, wallet_id, operation_type, amount_cents, round_id, game_type, description, metadata, created_at)
		SELECT $1, w.id, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, $9
		  FROM wallets w
		 WHERE w.user_id = $2
		ON CONFLICT (tx_id) DO NOTHING`,
		e.TxID, userID, e.Type, e.AmountCents, e.RoundID, e.GameType, e.Description, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// conflito no tx_id ou carteira inexistente
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id=$1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// ListTransactions devolve as últimas entradas do ledger, mais recentes primeiro
func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT l.tx_id, l.operation_type, l.amount_cents, COALESCE(l.round_id,''), COALESCE(l.game_type,''),
		       COALESCE(l.description,''), COALESCE(l.metadata,'{}'::jsonb), l.created_at
		  FROM wallet_ledger l
		  JOIN wallets w ON w.id = l.wallet_id
		 WHERE w.user_id = $1
		 ORDER BY l.created_at DESC, l.id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var meta []byte
		if err := rows.Scan(&e.TxID, &e.Type, &e.AmountCents, &e.RoundID, &e.GameType, &e.Description, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

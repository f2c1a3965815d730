package repo

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/shared/db"
)

// Requer um Postgres descartável: POSTGRES_DSN_TEST=postgres://...
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN_TEST")
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	pg, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), pg))
	t.Cleanup(func() { _ = pg.Close() })
	return pg
}

func TestAdjustBalanceNeverNegative(t *testing.T) {
	p := NewPostgres(openTestDB(t))
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	_, bal, err := p.GetOrCreateWallet(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	_, bal, err = p.Deposit(ctx, user, 500, "seed")
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)

	bal, err = p.AdjustBalance(ctx, user, -200, debitEntry(200))
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal)

	_, err = p.AdjustBalance(ctx, user, -301, debitEntry(301))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = p.AdjustBalance(ctx, "ghost-"+uuid.NewString(), 10, debitEntry(10))
	assert.ErrorIs(t, err, ErrNotFound)

	// só o débito aplicado ficou no ledger, além do depósito
	list, err := p.ListTransactions(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func debitEntry(amount int64) LedgerEntry {
	return LedgerEntry{TxID: uuid.NewString(), Type: "DEBIT", AmountCents: amount, RoundID: "r1", GameType: "crash"}
}

func TestAdjustBalanceIsIdempotentByTxID(t *testing.T) {
	p := NewPostgres(openTestDB(t))
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	_, _, err := p.GetOrCreateWallet(ctx, user)
	require.NoError(t, err)
	_, _, err = p.Deposit(ctx, user, 500, "seed")
	require.NoError(t, err)

	e := debitEntry(100)
	bal, err := p.AdjustBalance(ctx, user, -100, e)
	require.NoError(t, err)
	assert.Equal(t, int64(400), bal)

	// reenvio depois de uma resposta perdida: nada muda
	bal, err = p.AdjustBalance(ctx, user, -100, e)
	require.NoError(t, err)
	assert.Equal(t, int64(400), bal)

	list, err := p.ListTransactions(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, e.TxID, list[0].TxID)
	assert.Equal(t, "DEBIT", list[0].Type)
}

func TestAppendTransactionIsIdempotent(t *testing.T) {
	p := NewPostgres(openTestDB(t))
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	_, _, err := p.GetOrCreateWallet(ctx, user)
	require.NoError(t, err)

	e := LedgerEntry{TxID: uuid.NewString(), Type: "DEBIT", AmountCents: 100, RoundID: "r1", GameType: "crash",
		Metadata: map[string]string{"k": "v"}}
	require.NoError(t, p.AppendTransaction(ctx, user, e))
	require.NoError(t, p.AppendTransaction(ctx, user, e))

	list, err := p.ListTransactions(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].RoundID)
	assert.Equal(t, "v", list[0].Metadata["k"])

	err = p.AppendTransaction(ctx, "ghost-"+uuid.NewString(), LedgerEntry{TxID: uuid.NewString(), Type: "DEBIT"})
	assert.ErrorIs(t, err, ErrNotFound)
}

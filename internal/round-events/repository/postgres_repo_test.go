package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/chance-service/history"
	"github.com/radieske/chance-engine/internal/shared/db"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

func TestUpsertRoundIsVersioned(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN_TEST")
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	pg, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	defer pg.Close()
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, pg))

	repo := NewPostgresRepo(pg)
	acct := "acct-" + uuid.NewString()
	round := uuid.NewString()
	start := time.Now().UTC().Truncate(time.Millisecond)
	cp := 3.21

	ok, err := repo.UpsertRound(ctx, events.RoundEvent{RoundID: round, AccountID: acct, GameType: "crash",
		State: events.StateRevealing, BetAmount: 100, StartedAt: start, Ts: start, Version: 2}, events.StateRevealing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpsertRound(ctx, events.RoundEvent{RoundID: round, AccountID: acct, GameType: "crash",
		State: events.StateSettled, Result: events.ResultLoss, BetAmount: 100, CrashPoint: &cp, StartedAt: start,
		Ts: start.Add(time.Second), Version: 3}, events.StateSettled)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpsertRound(ctx, events.RoundEvent{RoundID: round, AccountID: acct, GameType: "crash",
		State: events.StateBetPlaced, BetAmount: 100, StartedAt: start, Ts: start, Version: 1}, events.StateBetPlaced)
	require.NoError(t, err)
	assert.False(t, ok)

	rounds, err := (&history.ReadRepo{DB: pg}).ListRounds(ctx, acct, "", 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, events.StateSettled, rounds[0].State)
	require.NotNil(t, rounds[0].CrashPoint)
	assert.Equal(t, 3.21, *rounds[0].CrashPoint)
}

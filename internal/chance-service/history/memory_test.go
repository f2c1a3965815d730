package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

func TestMemoryKeepsLatestVersion(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cp := 2.5

	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "crash", State: events.StateBetPlaced, BetAmount: 100, StartedAt: start, Version: 1})
	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "crash", State: events.StateSettled, Result: events.ResultLoss, BetAmount: 100, CrashPoint: &cp, StartedAt: start, Version: 3})
	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "crash", State: events.StateRevealing, BetAmount: 100, StartedAt: start, Version: 2})

	got, err := m.ListRounds(ctx, "a", "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.StateSettled, got[0].State)
	assert.Equal(t, events.ResultLoss, got[0].Result)
	require.NotNil(t, got[0].CrashPoint)
	assert.Equal(t, 2.5, *got[0].CrashPoint)
}

func TestMemoryFiltersAndOrders(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "crash", State: events.StateSettled, Version: 1})
	m.Notify(ctx, events.RoundEvent{RoundID: "r2", AccountID: "a", GameType: "luckybox", State: events.StateSettled, Version: 1})
	m.Notify(ctx, events.RoundEvent{RoundID: "r3", AccountID: "a", GameType: "crash", State: events.StateSettled, Version: 1})
	m.Notify(ctx, events.RoundEvent{AccountID: "a", State: events.StateIdle, Version: 4})

	all, err := m.ListRounds(ctx, "a", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2, "oldest round evicted")
	assert.Equal(t, "r3", all[0].RoundID)
	assert.Equal(t, "r2", all[1].RoundID)

	crash, err := m.ListRounds(ctx, "a", "crash", 0)
	require.NoError(t, err)
	require.Len(t, crash, 1)
	assert.Equal(t, "r3", crash[0].RoundID)

	none, err := m.ListRounds(ctx, "b", "", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRecordsRefund(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()
	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "luckybox", State: events.StateBetPlaced, Version: 1})
	m.Notify(ctx, events.RoundEvent{RoundID: "r1", AccountID: "a", GameType: "luckybox", State: events.StateIdle, Result: events.ResultRefund, Version: 2})

	got, err := m.ListRounds(ctx, "a", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.StateSettled, got[0].State)
	assert.Equal(t, events.ResultRefund, got[0].Result)
}

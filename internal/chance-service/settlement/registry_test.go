package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

type countingLoader struct{ calls int }

func (l *countingLoader) Load(_ context.Context, gt engine.GameType) engine.ChanceConfig {
	l.calls++
	return engine.Defaults(gt)
}

func TestRegistry_SessionPerAccountAndGame(t *testing.T) {
	loader := &countingLoader{}
	store := newFakeStore(acct, 500)
	reg := NewRegistry(loader, Deps{Store: store, Clock: newManualClock()})
	ctx := context.Background()

	a := reg.Session(ctx, acct, engine.GameCrash)
	b := reg.Session(ctx, acct, engine.GameCrash)
	c := reg.Session(ctx, acct, engine.GameLuckyBox)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, loader.calls)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int64(500), a.Balance())

	_, ok := reg.Lookup("someone-else", engine.GameCrash)
	assert.False(t, ok)
}

func TestRegistry_SweepResolvesIdleSessions(t *testing.T) {
	clock := newManualClock()
	store := newFakeStore(acct, 1000)
	store.balances["acc-2"] = 1000
	reg := NewRegistry(&countingLoader{}, Deps{Store: store, Clock: clock})
	ctx := context.Background()

	stale := reg.Session(ctx, acct, engine.GameLuckyBox)
	_, err := stale.PlaceBet(ctx, 200)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	reg.Session(ctx, "acc-2", engine.GameCrash)

	n := reg.Sweep(ctx, 5*time.Minute)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Lookup(acct, engine.GameLuckyBox)
	assert.False(t, ok)

	// a aposta em aberto foi estornada
	assert.Equal(t, int64(1000), store.balance(acct))
	assert.Equal(t, StateIdle, stale.Snapshot().State)
}

func TestRegistry_SweptSessionIsReplaced(t *testing.T) {
	clock := newManualClock()
	store := newFakeStore(acct, 1000)
	reg := NewRegistry(&countingLoader{}, Deps{Store: store, Clock: clock})
	ctx := context.Background()

	old := reg.Session(ctx, acct, engine.GameLuckyBox)
	clock.Advance(time.Hour)
	require.Equal(t, 1, reg.Sweep(ctx, 30*time.Minute))

	// quem ainda segura a sessão antiga não consegue abrir rodada nela
	_, err := old.PlaceBet(ctx, 200)
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, old.Reset(ctx), ErrSessionClosed)

	fresh := reg.Session(ctx, acct, engine.GameLuckyBox)
	assert.NotSame(t, old, fresh)
	_, err = fresh.PlaceBet(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(800), store.balance(acct))

	require.Equal(t, 1, reg.Sweep(ctx, 0))
	assert.Equal(t, int64(1000), store.balance(acct))
	assert.Equal(t, []TxType{TxDebit, TxRefund}, store.types())
}

func TestRegistry_SessionLookupKeepsSessionAlive(t *testing.T) {
	clock := newManualClock()
	store := newFakeStore(acct, 1000)
	reg := NewRegistry(&countingLoader{}, Deps{Store: store, Clock: clock})
	ctx := context.Background()

	c := reg.Session(ctx, acct, engine.GameCrash)
	clock.Advance(20 * time.Minute)
	assert.Same(t, c, reg.Session(ctx, acct, engine.GameCrash))
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 0, reg.Sweep(ctx, 30*time.Minute))
	assert.False(t, c.Closed())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SweepKeepsSessionWithPendingRefund(t *testing.T) {
	clock := newManualClock()
	store := newFakeStore(acct, 1000)
	reg := NewRegistry(&countingLoader{}, Deps{Store: store, Clock: clock})
	ctx := context.Background()

	c := reg.Session(ctx, acct, engine.GameLuckyBox)
	_, err := c.PlaceBet(ctx, 200)
	require.NoError(t, err)

	store.failAdjust = failOn(TxRefund)
	clock.Advance(time.Hour)
	assert.Equal(t, 0, reg.Sweep(ctx, 30*time.Minute))
	assert.False(t, c.Closed())
	assert.Equal(t, StateRefundPending, c.Snapshot().State)
	assert.Equal(t, int64(800), store.balance(acct))

	store.failAdjust = nil
	assert.Equal(t, 1, reg.Sweep(ctx, 30*time.Minute))
	assert.Equal(t, int64(1000), store.balance(acct))
	_, ok := reg.Lookup(acct, engine.GameLuckyBox)
	assert.False(t, ok)
}

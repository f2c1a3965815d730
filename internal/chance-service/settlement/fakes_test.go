package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/pkg/contracts/events"
)

type fakeStore struct {
	mu         sync.Mutex
	balances   map[string]int64
	txs        []Transaction
	seen       map[string]bool
	failAppend func(tx Transaction) error
	// failAdjust falha antes de aplicar; lostReply aplica e depois falha
	failAdjust func(tx Transaction) error
	lostReply  func(tx Transaction) bool
	adjusts    int
}

func newFakeStore(account string, balance int64) *fakeStore {
	return &fakeStore{balances: map[string]int64{account: balance}, seen: map[string]bool{}}
}

func (f *fakeStore) GetBalance(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id], nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, id string, delta int64, tx Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjusts++
	if f.failAdjust != nil {
		if err := f.failAdjust(tx); err != nil {
			return 0, err
		}
	}
	if f.seen[tx.ID] {
		return f.balances[id], nil
	}
	if f.balances[id]+delta < 0 {
		return 0, ErrInsufficientBalance
	}
	f.balances[id] += delta
	f.seen[tx.ID] = true
	f.txs = append(f.txs, tx)
	if f.lostReply != nil && f.lostReply(tx) {
		return 0, errDown
	}
	return f.balances[id], nil
}

func (f *fakeStore) AppendTransaction(_ context.Context, _ string, tx Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend != nil {
		if err := f.failAppend(tx); err != nil {
			return err
		}
	}
	if f.seen[tx.ID] {
		return nil
	}
	f.seen[tx.ID] = true
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeStore) balance(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id]
}

func (f *fakeStore) types() []TxType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TxType, 0, len(f.txs))
	for _, tx := range f.txs {
		out = append(out, tx.Type)
	}
	return out
}

var errDown = errors.New("connection reset by peer")

func failOn(t TxType) func(Transaction) error {
	return func(tx Transaction) error {
		if tx.Type == t {
			return errDown
		}
		return nil
	}
}

// failTimes falha as n primeiras chamadas para o tipo t
func failTimes(t TxType, n int) func(Transaction) error {
	return func(tx Transaction) error {
		if tx.Type == t && n > 0 {
			n--
			return errDown
		}
		return nil
	}
}

// onceFor devolve true só na primeira chamada para o tipo t
func onceFor(t TxType) func(Transaction) bool {
	done := false
	return func(tx Transaction) bool {
		if tx.Type == t && !done {
			done = true
			return true
		}
		return false
	}
}

type fakeCatalog struct {
	assets    []engine.Asset
	listed    []engine.PriceRange
	granted   map[string]string // roundID -> assetID
	failGrant error
}

func (f *fakeCatalog) ListAssets(_ context.Context, pr engine.PriceRange) ([]engine.Asset, error) {
	f.listed = append(f.listed, pr)
	return f.assets, nil
}

func (f *fakeCatalog) GrantAsset(_ context.Context, _, assetID, roundID string) error {
	if f.failGrant != nil {
		return f.failGrant
	}
	if f.granted == nil {
		f.granted = map[string]string{}
	}
	f.granted[roundID] = assetID
	return nil
}

func (f *fakeCatalog) RevokeAsset(_ context.Context, _, _, roundID string) error {
	delete(f.granted, roundID)
	return nil
}

type recorder struct {
	mu  sync.Mutex
	evs []events.RoundEvent
}

func (r *recorder) Notify(_ context.Context, ev events.RoundEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.State)
	}
	return out
}

// manualClock só dispara timers em Advance
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

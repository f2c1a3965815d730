package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/pkg/contracts/events"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type fakeWriter struct{ msgs []kafka.Message }

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeRepo struct {
	versions map[string]int
	states   map[string]string
	failures int
	calls    int
}

func (r *fakeRepo) UpsertRound(_ context.Context, e events.RoundEvent, state string) (bool, error) {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return false, errors.New("db down")
	}
	if r.versions[e.RoundID] >= e.Version {
		return false, nil
	}
	r.versions[e.RoundID] = e.Version
	r.states[e.RoundID] = state
	return true, nil
}

type fakeBroadcaster struct{ payloads [][]byte }

func (b *fakeBroadcaster) Publish(_ context.Context, _ string, payload []byte) error {
	b.payloads = append(b.payloads, payload)
	return nil
}

type fakeCache struct {
	invalidated []string
	err         error
}

func (c *fakeCache) Invalidate(_ context.Context, accountID string) error {
	c.invalidated = append(c.invalidated, accountID)
	return c.err
}

func msg(t *testing.T, offset int64, ev events.RoundEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(ev.AccountID), Value: b}
}

type harness struct {
	reader *fakeReader
	dlq    *fakeWriter
	repo   *fakeRepo
	bc     *fakeBroadcaster
	errs   []string
	p      *Processor
}

func newHarness(msgs ...kafka.Message) *harness {
	h := &harness{
		reader: &fakeReader{msgs: msgs},
		dlq:    &fakeWriter{},
		repo:   &fakeRepo{versions: map[string]int{}, states: map[string]string{}},
		bc:     &fakeBroadcaster{},
	}
	h.p = &Processor{
		Log:         zap.NewNop(),
		Reader:      h.reader,
		DLQ:         h.dlq,
		Repo:        h.repo,
		Broadcaster: h.bc,
		Channel:     "round_events_broadcast",
		MaxAttempts: 3,
		OnError:     func(stage string) { h.errs = append(h.errs, stage) },
	}
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.reader.cancel = cancel
	err := h.p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessorPersistsAndBroadcasts(t *testing.T) {
	h := newHarness(
		msg(t, 1, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateBetPlaced, Version: 1}),
		msg(t, 2, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateSettled, Result: events.ResultWin, Version: 3}),
		msg(t, 3, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateRevealing, Version: 2}),
		msg(t, 4, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateIdle, Result: events.ResultWin, Version: 4}),
	)
	h.run(t)

	assert.Equal(t, events.StateSettled, h.repo.states["r1"], "stale revealing event must not overwrite")
	assert.Equal(t, 3, h.repo.calls, "idle after settle is not persisted")
	assert.Len(t, h.bc.payloads, 4, "every event reaches the websocket channel")
	assert.Equal(t, []int64{1, 2, 3, 4}, h.reader.committed)
	assert.Empty(t, h.dlq.msgs)
}

func TestProcessorRefundRecordedAsSettled(t *testing.T) {
	h := newHarness(
		msg(t, 1, events.RoundEvent{RoundID: "r2", AccountID: "a", State: events.StateIdle, Result: events.ResultRefund, Version: 2}),
	)
	h.run(t)
	assert.Equal(t, events.StateSettled, h.repo.states["r2"])
}

func TestProcessorDecodeErrorGoesToDLQ(t *testing.T) {
	h := newHarness(kafka.Message{Offset: 7, Topic: "round_events", Value: []byte("{not json")})
	h.run(t)

	require.Len(t, h.dlq.msgs, 1)
	assert.Equal(t, []byte("{not json"), h.dlq.msgs[0].Value)
	assert.Contains(t, h.errs, "decode")
	assert.Equal(t, []int64{7}, h.reader.committed)
	assert.Empty(t, h.bc.payloads)
}

func TestProcessorRetriesThenDLQ(t *testing.T) {
	h := newHarness(msg(t, 1, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateSettled, Version: 1}))
	h.repo.failures = 2
	h.run(t)

	assert.Equal(t, 3, h.repo.calls)
	assert.Empty(t, h.dlq.msgs, "third attempt succeeded")
	assert.Equal(t, events.StateSettled, h.repo.states["r1"])

	h = newHarness(msg(t, 1, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateSettled, Version: 1}))
	h.repo.failures = 5
	h.run(t)
	assert.Equal(t, 3, h.repo.calls)
	require.Len(t, h.dlq.msgs, 1)
	assert.Equal(t, []byte("a"), h.dlq.msgs[0].Key)
	assert.Equal(t, []int64{1}, h.reader.committed)
}

func TestProcessorInvalidatesHistoryCacheOnlyWhenApplied(t *testing.T) {
	h := newHarness(
		msg(t, 1, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateSettled, Version: 2}),
		msg(t, 2, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateRevealing, Version: 1}),
		msg(t, 3, events.RoundEvent{RoundID: "r9", AccountID: "b", State: events.StateBetPlaced, Version: 1}),
	)
	c := &fakeCache{}
	h.p.Cache = c
	h.run(t)

	assert.Equal(t, []string{"a", "b"}, c.invalidated)
}

func TestProcessorCacheFailureDoesNotDeadLetter(t *testing.T) {
	h := newHarness(msg(t, 1, events.RoundEvent{RoundID: "r1", AccountID: "a", State: events.StateSettled, Version: 1}))
	h.p.Cache = &fakeCache{err: errors.New("redis down")}
	h.run(t)

	assert.Empty(t, h.dlq.msgs)
	assert.Contains(t, h.errs, "cache")
	assert.Len(t, h.bc.payloads, 1)
}

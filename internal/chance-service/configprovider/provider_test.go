package configprovider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

type fakeStore struct {
	docs  map[engine.GameType]string
	err   error
	calls int
}

func (f *fakeStore) GetConfig(_ context.Context, gt engine.GameType) (engine.PartialConfig, error) {
	f.calls++
	if f.err != nil {
		return engine.PartialConfig{}, f.err
	}
	raw, ok := f.docs[gt]
	if !ok {
		return engine.PartialConfig{}, ErrConfigNotFound
	}
	var p engine.PartialConfig
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return engine.PartialConfig{}, err
	}
	return p, nil
}

func TestLoad_MergesRemoteOverDefaults(t *testing.T) {
	store := &fakeStore{docs: map[engine.GameType]string{
		engine.GameCrash: `{"max_bet": 2000, "house_edge": 0.05}`,
	}}
	p := New(store, zap.NewNop())

	cfg := p.Load(context.Background(), engine.GameCrash)
	assert.Equal(t, int64(2000), cfg.MaxBet)
	assert.Equal(t, 0.05, cfg.HouseEdge)
	assert.Equal(t, engine.Defaults(engine.GameCrash).MinBet, cfg.MinBet)
	assert.Equal(t, time.Second, cfg.MinRoundDuration)
}

func TestLoad_FallbackNeverFails(t *testing.T) {
	cases := map[string]*fakeStore{
		"network":   {err: errors.New("dial tcp: connection refused")},
		"not found": {docs: map[engine.GameType]string{}},
		"malformed": {docs: map[engine.GameType]string{engine.GameLuckyBox: `{"tiers": "nope"`}},
	}
	for name, store := range cases {
		t.Run(name, func(t *testing.T) {
			var reasons []string
			p := New(store, zap.NewNop())
			p.OnFallback = func(_ engine.GameType, reason string) { reasons = append(reasons, reason) }

			cfg := p.Load(context.Background(), engine.GameLuckyBox)
			assert.Equal(t, engine.Defaults(engine.GameLuckyBox), cfg)
			require.Len(t, reasons, 1)
		})
	}
}

func TestLoad_DropsInvalidFieldsIndividually(t *testing.T) {
	store := &fakeStore{docs: map[engine.GameType]string{
		engine.GameLuckyBox: `{"house_edge": 1.5, "asset_chance": 0.1, "tiers": [{"range": [0, 1], "chance": 0.9}, {"range": [1, 2], "chance": 0.2}]}`,
	}}
	var dropped []string
	p := New(store, zap.NewNop())
	p.OnDropped = func(_ engine.GameType, fields []string) { dropped = fields }

	cfg := p.Load(context.Background(), engine.GameLuckyBox)
	def := engine.Defaults(engine.GameLuckyBox)
	assert.Equal(t, 0.1, cfg.AssetChance)
	assert.Equal(t, def.HouseEdge, cfg.HouseEdge)
	assert.Equal(t, def.Tiers, cfg.Tiers)
	assert.ElementsMatch(t, []string{"house_edge", "tiers"}, dropped)
}

func TestLoad_NilStore(t *testing.T) {
	assert.Equal(t, engine.Defaults(engine.GameCrash), New(nil, nil).Load(context.Background(), engine.GameCrash))
}

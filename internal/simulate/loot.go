package simulate

import (
	"context"
	"fmt"

	"github.com/radieske/chance-engine/internal/chance-service/account"
	"github.com/radieske/chance-engine/internal/chance-service/catalog"
	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/chance-service/settlement"
)

// LootReport resume N caixas abertas com aposta fixa.
type LootReport struct {
	Rounds    int     `json:"rounds"`
	Wagered   int64   `json:"wagered"`
	PaidCoins int64   `json:"paid_coins"`
	AssetHits int     `json:"asset_hits"`
	AssetRate float64 `json:"asset_rate"`
	// AssetValue soma o preço dos assets concedidos
	AssetValue int64   `json:"asset_value"`
	RTP        float64 `json:"rtp"` // (moedas + valor dos assets) / apostado
	TierHits   []int   `json:"tier_hits"`
	Fallbacks  int     `json:"fallbacks"`
}

// Loot simula direto no sampler, sem passar pelo coordenador.
func Loot(rng engine.RandomSource, cfg engine.ChanceConfig, pool []engine.Asset, rounds int, bet int64) LootReport {
	rep := LootReport{Rounds: rounds, TierHits: make([]int, len(cfg.Tiers))}
	pr := engine.AssetPriceRange(bet, cfg)
	var eligible []engine.Asset
	for _, a := range pool {
		if a.Price >= pr.Min && a.Price <= pr.Max {
			eligible = append(eligible, a)
		}
	}

	for i := 0; i < rounds; i++ {
		rep.Wagered += bet
		out := engine.SampleLoot(rng, bet, eligible, cfg)
		rep.add(out)
	}
	rep.finish()
	return rep
}

func (r *LootReport) add(out engine.LootOutcome) {
	if out.Type == engine.LootAsset && out.Asset != nil {
		r.AssetHits++
		r.AssetValue += out.Asset.Price
		return
	}
	r.PaidCoins += out.Coins
	if out.Tier >= 0 && out.Tier < len(r.TierHits) {
		r.TierHits[out.Tier]++
	}
	if out.Fallback {
		r.Fallbacks++
	}
}

func (r *LootReport) finish() {
	if r.Rounds > 0 {
		r.AssetRate = float64(r.AssetHits) / float64(r.Rounds)
	}
	r.RTP = ratio(r.PaidCoins+r.AssetValue, r.Wagered)
}

// LuckyBoxSessions joga rodadas completas pelo coordenador (aposta, escolha,
// reset) contra stores em memória e confere o saldo final com o ledger.
func LuckyBoxSessions(ctx context.Context, rng engine.RandomSource, cfg engine.ChanceConfig, rounds int, bet int64) (LootReport, error) {
	const acct = "simulator"
	store := account.NewMemoryStore()
	start := int64(rounds) * bet
	store.Deposit(acct, start)
	assets := catalog.NewMemory(catalog.DefaultAssets()...)

	cfg.DebounceWindow = 0
	c := settlement.NewCoordinator(acct, cfg, settlement.Deps{
		Store:   store,
		Catalog: assets,
		RNG:     rng,
	})
	if _, err := c.Refresh(ctx); err != nil {
		return LootReport{}, err
	}

	rep := LootReport{TierHits: make([]int, len(cfg.Tiers))}
	for i := 0; i < rounds; i++ {
		if _, err := c.PlaceBet(ctx, bet); err != nil {
			return rep, fmt.Errorf("round %d: place bet: %w", i, err)
		}
		snap, err := c.SelectBox(ctx, i%max(cfg.BoxCount, 1))
		if err != nil {
			return rep, fmt.Errorf("round %d: select: %w", i, err)
		}
		if snap.Loot != nil {
			rep.add(*snap.Loot)
		}
		rep.Rounds++
		rep.Wagered += bet
		if err := c.Reset(ctx); err != nil {
			return rep, fmt.Errorf("round %d: reset: %w", i, err)
		}
	}
	rep.finish()

	final, err := store.GetBalance(ctx, acct)
	if err != nil {
		return rep, err
	}
	if want := start - rep.Wagered + rep.PaidCoins; final != want {
		return rep, fmt.Errorf("balance mismatch: ledger says %d, store has %d", want, final)
	}
	if err := checkLedger(store.Transactions(acct), start, final); err != nil {
		return rep, err
	}
	return rep, nil
}

// checkLedger reconstrói o saldo a partir das transações registradas
func checkLedger(txs []settlement.Transaction, start, final int64) error {
	bal := start
	for _, tx := range txs {
		switch tx.Type {
		case settlement.TxDebit:
			bal -= tx.Amount
		case settlement.TxCredit, settlement.TxRefund:
			bal += tx.Amount
		}
	}
	if bal != final {
		return fmt.Errorf("ledger replay: got %d, store has %d", bal, final)
	}
	return nil
}

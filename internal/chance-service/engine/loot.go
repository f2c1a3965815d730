package engine

import "math"

type LootType string

const (
	LootCoins LootType = "coins"
	LootAsset LootType = "asset"
)

// Asset é um item do catálogo que pode sair numa caixa.
type Asset struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// PriceRange filtra o catálogo por preço, inclusivo nas duas pontas.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// LootOutcome é o conteúdo de uma caixa: moedas ou um asset.
type LootOutcome struct {
	Type       LootType `json:"type"`
	Coins      int64    `json:"coins,omitempty"`
	Multiplier float64  `json:"multiplier,omitempty"`
	Tier       int      `json:"tier"`
	Fallback   bool     `json:"fallback,omitempty"`
	Asset      *Asset   `json:"asset,omitempty"`
}

// AssetPriceRange é a faixa de preço de assets elegíveis para uma aposta.
func AssetPriceRange(amount int64, cfg ChanceConfig) PriceRange {
	return PriceRange{
		Min: int64(math.Ceil(float64(amount) * cfg.AssetPriceMinMultiple)),
		Max: int64(math.Floor(float64(amount) * cfg.AssetPriceMaxMultiple)),
	}
}

// SampleLoot sorteia o conteúdo de uma caixa.
//
// Primeiro sorteio: asset se u < assetChance (assetChance vira 0 com pool vazio).
// Caso contrário um segundo sorteio percorre os tiers acumulando chances; o
// multiplicador é uniforme dentro da faixa do tier e coins = floor(amount*mult).
// Se o sorteio passar da soma acumulada (tiers somando menos de 1), usa o primeiro tier.
func SampleLoot(rng RandomSource, amount int64, pool []Asset, cfg ChanceConfig) LootOutcome {
	assetChance := cfg.AssetChance
	if len(pool) == 0 {
		assetChance = 0
	}

	u := rng.Float64()
	if u < assetChance {
		a := pool[pickIndex(rng, len(pool))]
		return LootOutcome{Type: LootAsset, Tier: -1, Asset: &a}
	}
	return sampleCoins(rng, amount, cfg)
}

func sampleCoins(rng RandomSource, amount int64, cfg ChanceConfig) LootOutcome {
	if len(cfg.Tiers) == 0 {
		return LootOutcome{Type: LootCoins, Tier: -1}
	}

	v := rng.Float64()
	selected, fallback := -1, false
	var cum float64
	for i, t := range cfg.Tiers {
		cum += t.Chance
		if v < cum {
			selected = i
			break
		}
	}
	if selected < 0 {
		selected, fallback = 0, true
	}

	r := cfg.Tiers[selected].Range
	mult := r.Lo + rng.Float64()*(r.Hi-r.Lo)
	if cfg.MaxMultiplier > 0 && mult > cfg.MaxMultiplier {
		mult = cfg.MaxMultiplier
	}

	return LootOutcome{
		Type:       LootCoins,
		Coins:      Payout(amount, mult),
		Multiplier: mult,
		Tier:       selected,
		Fallback:   fallback,
	}
}

// SampleDisplay gera o conteúdo das caixas não escolhidas. Só serve para exibição:
// nenhum desses resultados é liquidado.
func SampleDisplay(rng RandomSource, amount int64, pool []Asset, cfg ChanceConfig, n int) []LootOutcome {
	if n <= 0 {
		return nil
	}
	out := make([]LootOutcome, n)
	for i := range out {
		out[i] = SampleLoot(rng, amount, pool, cfg)
	}
	return out
}

func pickIndex(rng RandomSource, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

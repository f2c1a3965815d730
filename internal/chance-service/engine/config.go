package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// GameType identifica o minigame. Cada tipo tem sua própria configuração.
type GameType string

const (
	GameCrash    GameType = "crash"
	GameLuckyBox GameType = "luckybox"
)

// ParseGameType valida o nome recebido de rotas e documentos de configuração.
func ParseGameType(s string) (GameType, bool) {
	switch GameType(s) {
	case GameCrash, GameLuckyBox:
		return GameType(s), true
	}
	return "", false
}

// Range é uma faixa fechada de multiplicadores [Lo, Hi].
// Serializada como array de dois números, ex: [2, 4].
type Range struct {
	Lo float64
	Hi float64
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Lo, r.Hi})
}

func (r *Range) UnmarshalJSON(b []byte) error {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if len(v) != 2 {
		return fmt.Errorf("range must have 2 elements, got %d", len(v))
	}
	r.Lo, r.Hi = v[0], v[1]
	return nil
}

// Tier é uma faixa de multiplicador com sua probabilidade.
type Tier struct {
	Range  Range   `json:"range"`
	Chance float64 `json:"chance"`
}

// ChanceConfig reúne os parâmetros ajustáveis de um jogo.
// Carregada uma vez por sessão e tratada como imutável depois disso.
type ChanceConfig struct {
	GameType      GameType `json:"game_type"`
	MinBet        int64    `json:"min_bet"`
	MaxBet        int64    `json:"max_bet"`
	HouseEdge     float64  `json:"house_edge"`
	MaxMultiplier float64  `json:"max_multiplier"`

	// lucky box
	Tiers                 []Tier  `json:"tiers,omitempty"`
	AssetChance           float64 `json:"asset_chance"`
	AssetPriceMinMultiple float64 `json:"asset_price_min_multiple"`
	AssetPriceMaxMultiple float64 `json:"asset_price_max_multiple"`
	BoxCount              int     `json:"box_count"`

	// crash
	RisePerSecond    float64       `json:"rise_per_second"`
	MinRoundDuration time.Duration `json:"min_round_duration"`

	DebounceWindow time.Duration `json:"debounce_window"`
}

// Clone devolve uma cópia sem compartilhar o slice de tiers.
func (c ChanceConfig) Clone() ChanceConfig {
	out := c
	if c.Tiers != nil {
		out.Tiers = append([]Tier(nil), c.Tiers...)
	}
	return out
}

// Defaults retorna o conjunto hardcoded usado quando o armazenamento externo falha.
func Defaults(gt GameType) ChanceConfig {
	switch gt {
	case GameLuckyBox:
		return ChanceConfig{
			GameType:      GameLuckyBox,
			MinBet:        50,
			MaxBet:        5000,
			HouseEdge:     0,
			MaxMultiplier: 5.00,
			Tiers: []Tier{
				{Range: Range{Lo: 0, Hi: 1}, Chance: 0.925},
				{Range: Range{Lo: 2, Hi: 4}, Chance: 0.025},
				{Range: Range{Lo: 4, Hi: 5}, Chance: 0.01},
			},
			AssetChance:           0.05,
			AssetPriceMinMultiple: 1.0,
			AssetPriceMaxMultiple: 3.0,
			BoxCount:              3,
			DebounceWindow:        500 * time.Millisecond,
		}
	default:
		return ChanceConfig{
			GameType:         GameCrash,
			MinBet:           10,
			MaxBet:           10000,
			HouseEdge:        0.08,
			MaxMultiplier:    7.00,
			RisePerSecond:    0.25,
			MinRoundDuration: time.Second,
			DebounceWindow:   500 * time.Millisecond,
		}
	}
}

// PartialConfig é o documento remoto: qualquer campo pode faltar.
type PartialConfig struct {
	MinBet                *int64   `json:"min_bet,omitempty"`
	MaxBet                *int64   `json:"max_bet,omitempty"`
	HouseEdge             *float64 `json:"house_edge,omitempty"`
	MaxMultiplier         *float64 `json:"max_multiplier,omitempty"`
	Tiers                 []Tier   `json:"tiers,omitempty"`
	AssetChance           *float64 `json:"asset_chance,omitempty"`
	AssetPriceMinMultiple *float64 `json:"asset_price_min_multiple,omitempty"`
	AssetPriceMaxMultiple *float64 `json:"asset_price_max_multiple,omitempty"`
	BoxCount              *int     `json:"box_count,omitempty"`
	RisePerSecond         *float64 `json:"rise_per_second,omitempty"`
	MinRoundDurationMs    *int64   `json:"min_round_duration_ms,omitempty"`
	DebounceWindowMs      *int64   `json:"debounce_window_ms,omitempty"`
}

// Merge aplica os campos válidos de p sobre base.
// Campos inválidos são ignorados um a um; os nomes descartados são devolvidos
// para que o chamador registre em log.
func Merge(base ChanceConfig, p PartialConfig) (ChanceConfig, []string) {
	out := base.Clone()
	var dropped []string

	minBet, maxBet := out.MinBet, out.MaxBet
	if p.MinBet != nil {
		minBet = *p.MinBet
	}
	if p.MaxBet != nil {
		maxBet = *p.MaxBet
	}
	if minBet > 0 && maxBet >= minBet {
		out.MinBet, out.MaxBet = minBet, maxBet
	} else if p.MinBet != nil || p.MaxBet != nil {
		dropped = append(dropped, "min_bet/max_bet")
	}

	if p.HouseEdge != nil {
		if *p.HouseEdge >= 0 && *p.HouseEdge < 1 {
			out.HouseEdge = *p.HouseEdge
		} else {
			dropped = append(dropped, "house_edge")
		}
	}
	if p.MaxMultiplier != nil {
		if *p.MaxMultiplier >= 1 {
			out.MaxMultiplier = *p.MaxMultiplier
		} else {
			dropped = append(dropped, "max_multiplier")
		}
	}
	if p.Tiers != nil {
		if err := ValidateTiers(p.Tiers); err == nil {
			out.Tiers = append([]Tier(nil), p.Tiers...)
		} else {
			dropped = append(dropped, "tiers")
		}
	}
	if p.AssetChance != nil {
		if *p.AssetChance >= 0 && *p.AssetChance <= 1 {
			out.AssetChance = *p.AssetChance
		} else {
			dropped = append(dropped, "asset_chance")
		}
	}

	lo, hi := out.AssetPriceMinMultiple, out.AssetPriceMaxMultiple
	if p.AssetPriceMinMultiple != nil {
		lo = *p.AssetPriceMinMultiple
	}
	if p.AssetPriceMaxMultiple != nil {
		hi = *p.AssetPriceMaxMultiple
	}
	if lo >= 0 && hi >= lo {
		out.AssetPriceMinMultiple, out.AssetPriceMaxMultiple = lo, hi
	} else {
		dropped = append(dropped, "asset_price_multiples")
	}

	if p.BoxCount != nil {
		if *p.BoxCount >= 1 {
			out.BoxCount = *p.BoxCount
		} else {
			dropped = append(dropped, "box_count")
		}
	}
	if p.RisePerSecond != nil {
		if *p.RisePerSecond > 0 {
			out.RisePerSecond = *p.RisePerSecond
		} else {
			dropped = append(dropped, "rise_per_second")
		}
	}
	if p.MinRoundDurationMs != nil {
		if *p.MinRoundDurationMs >= 0 {
			out.MinRoundDuration = time.Duration(*p.MinRoundDurationMs) * time.Millisecond
		} else {
			dropped = append(dropped, "min_round_duration_ms")
		}
	}
	if p.DebounceWindowMs != nil {
		if *p.DebounceWindowMs >= 0 {
			out.DebounceWindow = time.Duration(*p.DebounceWindowMs) * time.Millisecond
		} else {
			dropped = append(dropped, "debounce_window_ms")
		}
	}

	return out, dropped
}

const chanceEpsilon = 1e-9

// ValidateTiers exige ao menos um tier, faixas 0 <= lo <= hi, chances
// não negativas e soma de chances <= 1. Somas abaixo de 1 são aceitas.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers")
	}
	var sum float64
	for i, t := range tiers {
		if math.IsNaN(t.Range.Lo) || math.IsNaN(t.Range.Hi) || math.IsNaN(t.Chance) {
			return fmt.Errorf("tier %d: NaN", i)
		}
		if t.Range.Lo < 0 || t.Range.Hi < t.Range.Lo {
			return fmt.Errorf("tier %d: invalid range [%v, %v]", i, t.Range.Lo, t.Range.Hi)
		}
		if t.Chance < 0 {
			return fmt.Errorf("tier %d: negative chance", i)
		}
		sum += t.Chance
	}
	if sum > 1+chanceEpsilon {
		return fmt.Errorf("tier chances sum to %v", sum)
	}
	return nil
}

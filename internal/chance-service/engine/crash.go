package engine

import (
	"math"
	"time"
)

const (
	MinCrashPoint = 1.00
	MaxCrashPoint = 7.00
)

// crashBand mapeia [from, to) da variável ajustada para [lo, hi] de multiplicador.
type crashBand struct {
	from, to float64
	lo, hi   float64
}

// Os breakpoints definem a vantagem estatística da casa; não vêm de configuração remota.
var crashBands = [...]crashBand{
	{from: 0.00, to: 0.18, lo: 1.00, hi: 1.00},
	{from: 0.18, to: 0.55, lo: 1.01, hi: 1.50},
	{from: 0.55, to: 0.78, lo: 1.51, hi: 2.50},
	{from: 0.78, to: 0.90, lo: 2.51, hi: 4.00},
	{from: 0.90, to: 0.96, lo: 4.01, hi: 6.00},
	{from: 0.96, to: 1.00, lo: 6.01, hi: 7.00},
}

// CrashOutcome é o resultado comprometido de uma rodada de crash.
type CrashOutcome struct {
	CrashPoint float64 `json:"crash_point"`
}

// SampleCrashPoint sorteia u ~ U(0,1), aplica a vantagem da casa
// (u * (1 - houseEdge)) e converte pela tabela de breakpoints.
func SampleCrashPoint(rng RandomSource, houseEdge float64) float64 {
	if houseEdge < 0 || houseEdge >= 1 || math.IsNaN(houseEdge) {
		houseEdge = 0
	}
	u := rng.Float64()
	return CrashPointFor(u * (1 - houseEdge))
}

// CrashPointFor converte a variável já ajustada em multiplicador,
// interpolando linearmente dentro da faixa e arredondando em 2 casas.
func CrashPointFor(adjusted float64) float64 {
	if adjusted < 0 || math.IsNaN(adjusted) {
		adjusted = 0
	}
	if adjusted >= 1 {
		adjusted = math.Nextafter(1, 0)
	}
	for _, b := range crashBands {
		if adjusted < b.to {
			frac := (adjusted - b.from) / (b.to - b.from)
			return round2(b.lo + frac*(b.hi-b.lo))
		}
	}
	return MaxCrashPoint
}

// SampleCrash aplica a configuração do jogo: vantagem da casa e teto de multiplicador.
func SampleCrash(rng RandomSource, cfg ChanceConfig) CrashOutcome {
	cp := SampleCrashPoint(rng, cfg.HouseEdge)
	if cfg.MaxMultiplier >= MinCrashPoint && cp > cfg.MaxMultiplier {
		cp = round2(cfg.MaxMultiplier)
	}
	return CrashOutcome{CrashPoint: cp}
}

// MultiplierAt é a curva exibida ao jogador: sobe linearmente a partir de 1.00,
// truncada em 2 casas.
func MultiplierAt(elapsed time.Duration, risePerSecond float64) float64 {
	if elapsed <= 0 || risePerSecond <= 0 {
		return MinCrashPoint
	}
	m := 1 + risePerSecond*elapsed.Seconds()
	return math.Floor(m*100+1e-6) / 100
}

// CrashDelay é o instante em que a curva atinge exatamente crashPoint.
func CrashDelay(crashPoint, risePerSecond float64) time.Duration {
	if crashPoint <= MinCrashPoint || risePerSecond <= 0 {
		return 0
	}
	secs := (crashPoint - 1) / risePerSecond
	return time.Duration(math.Ceil(secs * float64(time.Second)))
}

// CashOutMultiplier devolve o multiplicador válido para um cash-out em elapsed,
// ou false se a curva já atingiu o ponto de crash.
func CashOutMultiplier(crashPoint float64, elapsed time.Duration, risePerSecond float64) (float64, bool) {
	if elapsed >= CrashDelay(crashPoint, risePerSecond) {
		return 0, false
	}
	m := MultiplierAt(elapsed, risePerSecond)
	if m >= crashPoint {
		return 0, false
	}
	return m, true
}

// Payout calcula floor(amount * multiplier) em moedas inteiras.
func Payout(amount int64, multiplier float64) int64 {
	if amount <= 0 || multiplier <= 0 {
		return 0
	}
	return int64(math.Floor(float64(amount)*multiplier + 1e-9))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

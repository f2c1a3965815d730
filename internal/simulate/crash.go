// Package simulate roda Monte Carlo sobre os samplers para medir RTP e
// distribuição de resultados com uma configuração dada.
package simulate

import (
	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

// CrashReport resume N rodadas de crash com cash-out fixo em Target.
type CrashReport struct {
	Rounds   int     `json:"rounds"`
	Target   float64 `json:"target"`
	Wagered  int64   `json:"wagered"`
	Paid     int64   `json:"paid"`
	RTP      float64 `json:"rtp"`
	BustRate float64 `json:"bust_rate"` // crash point == 1.00
	WinRate  float64 `json:"win_rate"`
	MeanCP   float64 `json:"mean_crash_point"`
	// Buckets conta crash points por faixa: [1,1.01), [1.01,1.5], ...
	Buckets map[string]int `json:"buckets"`
}

var crashBuckets = []struct {
	label  string
	lo, hi float64
}{
	{"1.00", 1.00, 1.00},
	{"1.01-1.50", 1.01, 1.50},
	{"1.51-2.50", 1.51, 2.50},
	{"2.51-4.00", 2.51, 4.00},
	{"4.01-6.00", 4.01, 6.00},
	{"6.01-7.00", 6.01, 7.00},
}

// Crash simula rounds apostas de bet com cash-out em target.
// Cash-out vence quando o crash point é estritamente maior que target.
func Crash(rng engine.RandomSource, cfg engine.ChanceConfig, rounds int, bet int64, target float64) CrashReport {
	rep := CrashReport{Rounds: rounds, Target: target, Buckets: make(map[string]int, len(crashBuckets))}
	if rounds <= 0 {
		return rep
	}

	var sumCP float64
	busts, wins := 0, 0
	for i := 0; i < rounds; i++ {
		cp := engine.SampleCrash(rng, cfg).CrashPoint
		sumCP += cp
		rep.Wagered += bet
		if cp <= engine.MinCrashPoint {
			busts++
		}
		if cp > target {
			wins++
			rep.Paid += engine.Payout(bet, target)
		}
		for _, b := range crashBuckets {
			if cp >= b.lo && cp <= b.hi {
				rep.Buckets[b.label]++
				break
			}
		}
	}

	rep.RTP = ratio(rep.Paid, rep.Wagered)
	rep.BustRate = float64(busts) / float64(rounds)
	rep.WinRate = float64(wins) / float64(rounds)
	rep.MeanCP = sumCP / float64(rounds)
	return rep
}

func ratio(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

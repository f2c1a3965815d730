package engine

type OutcomeKind string

const (
	KindCrash OutcomeKind = "crash"
	KindLoot  OutcomeKind = "loot"
)

// Outcome é a união etiquetada dos resultados dos dois jogos.
type Outcome struct {
	Kind  OutcomeKind   `json:"kind"`
	Crash *CrashOutcome `json:"crash,omitempty"`
	Loot  *LootOutcome  `json:"loot,omitempty"`
}

func CrashResult(c CrashOutcome) Outcome { return Outcome{Kind: KindCrash, Crash: &c} }

func LootResult(l LootOutcome) Outcome { return Outcome{Kind: KindLoot, Loot: &l} }

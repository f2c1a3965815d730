package engine

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource fornece variáveis uniformes em [0, 1).
// Os samplers recebem a fonte por parâmetro para que testes e simulações
// possam fixar os sorteios.
type RandomSource interface {
	Float64() float64
}

// cryptoSource é a fonte padrão em produção (crypto/rand, 53 bits)
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// CryptoSource retorna a fonte baseada em crypto/rand.
func CryptoSource() RandomSource { return cryptoSource{} }

// seededSource é reprodutível (Monte Carlo, replays)
type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource cria uma fonte determinística a partir de uma seed PCG.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// SequenceSource devolve os valores informados em ordem e depois repete o último.
// Usada para forçar sorteios conhecidos.
type SequenceSource struct {
	mu   sync.Mutex
	vals []float64
	pos  int
}

func NewSequenceSource(vals ...float64) *SequenceSource {
	return &SequenceSource{vals: vals}
}

func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vals) == 0 {
		return 0
	}
	if s.pos >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	v := s.vals[s.pos]
	s.pos++
	return v
}

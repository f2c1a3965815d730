package account

import (
	"context"
	"sync"

	"github.com/radieske/chance-engine/internal/chance-service/settlement"
)

// MemoryStore guarda saldos e ledger em memória. Usado em dev e no simulador.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
	ledger   map[string][]settlement.Transaction
	seen     map[string]struct{}
	opening  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]int64),
		ledger:   make(map[string][]settlement.Transaction),
		seen:     make(map[string]struct{}),
	}
}

// WithOpeningBalance faz contas novas começarem com n moedas
func (m *MemoryStore) WithOpeningBalance(n int64) *MemoryStore {
	m.opening = n
	return m
}

func (m *MemoryStore) balanceLocked(accountID string) int64 {
	bal, ok := m.balances[accountID]
	if !ok {
		bal = m.opening
		m.balances[accountID] = bal
	}
	return bal
}

// Deposit credita saldo fora de uma rodada (seed de contas)
func (m *MemoryStore) Deposit(accountID string, amount int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] = m.balanceLocked(accountID) + amount
	return m.balances[accountID]
}

func (m *MemoryStore) GetBalance(_ context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(accountID), nil
}

// AdjustBalance aplica delta e grava tx; tx.ID repetido devolve o saldo atual.
func (m *MemoryStore) AdjustBalance(_ context.Context, accountID string, delta int64, tx settlement.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[tx.ID]; dup {
		return m.balanceLocked(accountID), nil
	}
	bal := m.balanceLocked(accountID) + delta
	if bal < 0 {
		return 0, settlement.ErrInsufficientBalance
	}
	m.balances[accountID] = bal
	m.seen[tx.ID] = struct{}{}
	m.ledger[accountID] = append(m.ledger[accountID], tx)
	return bal, nil
}

// AppendTransaction ignora IDs repetidos, como o ledger em Postgres.
func (m *MemoryStore) AppendTransaction(_ context.Context, accountID string, tx settlement.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[tx.ID]; dup {
		return nil
	}
	m.seen[tx.ID] = struct{}{}
	m.ledger[accountID] = append(m.ledger[accountID], tx)
	return nil
}

// Transactions devolve uma cópia do ledger da conta, em ordem de inserção
func (m *MemoryStore) Transactions(accountID string) []settlement.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]settlement.Transaction(nil), m.ledger[accountID]...)
}

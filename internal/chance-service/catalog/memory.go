package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
)

type grant struct {
	AccountID string
	AssetID   string
}

// Memory é o catálogo em memória usado em dev e no simulador
type Memory struct {
	mu     sync.Mutex
	assets []engine.Asset
	grants map[string]grant // por round
}

func NewMemory(assets ...engine.Asset) *Memory {
	m := &Memory{grants: make(map[string]grant)}
	m.assets = append(m.assets, assets...)
	sort.Slice(m.assets, func(i, j int) bool {
		if m.assets[i].Price != m.assets[j].Price {
			return m.assets[i].Price < m.assets[j].Price
		}
		return m.assets[i].ID < m.assets[j].ID
	})
	return m
}

func (m *Memory) ListAssets(_ context.Context, pr engine.PriceRange) ([]engine.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engine.Asset
	for _, a := range m.assets {
		if a.Price >= pr.Min && a.Price <= pr.Max {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) GrantAsset(_ context.Context, accountID, assetID, roundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.grants[roundID]; ok {
		if g.AssetID != assetID {
			return ErrAlreadyGranted
		}
		return nil
	}
	m.grants[roundID] = grant{AccountID: accountID, AssetID: assetID}
	return nil
}

func (m *Memory) RevokeAsset(_ context.Context, accountID, assetID, roundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.grants[roundID]; ok && g.AccountID == accountID && g.AssetID == assetID {
		delete(m.grants, roundID)
	}
	return nil
}

// Owned lista os assets concedidos a uma conta
func (m *Memory) Owned(accountID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, g := range m.grants {
		if g.AccountID == accountID {
			out = append(out, g.AssetID)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultAssets é o catálogo de demonstração
func DefaultAssets() []engine.Asset {
	return []engine.Asset{
		{ID: "skin-bronze", Name: "Bronze Skin", Price: 250},
		{ID: "skin-silver", Name: "Silver Skin", Price: 500},
		{ID: "skin-gold", Name: "Gold Skin", Price: 1_000},
		{ID: "skin-emerald", Name: "Emerald Skin", Price: 2_500},
		{ID: "skin-ruby", Name: "Ruby Skin", Price: 5_000},
		{ID: "skin-diamond", Name: "Diamond Skin", Price: 10_000},
	}
}

package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/chance-engine/internal/chance-service/engine"
	"github.com/radieske/chance-engine/internal/shared/db"
)

func TestMemoryListByPrice(t *testing.T) {
	m := NewMemory(DefaultAssets()...)

	got, err := m.ListAssets(context.Background(), engine.PriceRange{Min: 500, Max: 2_500})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"skin-silver", "skin-gold", "skin-emerald"}, ids)

	got, err = m.ListAssets(context.Background(), engine.PriceRange{Min: 20_000, Max: 40_000})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryGrantRevoke(t *testing.T) {
	m := NewMemory(DefaultAssets()...)
	ctx := context.Background()

	require.NoError(t, m.GrantAsset(ctx, "a1", "skin-gold", "r1"))
	require.NoError(t, m.GrantAsset(ctx, "a1", "skin-gold", "r1"))
	assert.ErrorIs(t, m.GrantAsset(ctx, "a1", "skin-ruby", "r1"), ErrAlreadyGranted)
	assert.Equal(t, []string{"skin-gold"}, m.Owned("a1"))

	require.NoError(t, m.RevokeAsset(ctx, "a1", "skin-gold", "r1"))
	assert.Empty(t, m.Owned("a1"))
}

func TestPostgresCatalog(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN_TEST")
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	pg, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	defer pg.Close()
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, pg))

	p := NewPostgres(pg)
	id := "test-" + uuid.NewString()
	require.NoError(t, p.Upsert(ctx, engine.Asset{ID: id, Name: "Test", Price: 777_777}))

	got, err := p.ListAssets(ctx, engine.PriceRange{Min: 777_777, Max: 777_777})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	round := uuid.NewString()
	require.NoError(t, p.GrantAsset(ctx, "acct", id, round))
	require.NoError(t, p.GrantAsset(ctx, "acct", id, round))
	require.NoError(t, p.RevokeAsset(ctx, "acct", id, round))
	require.NoError(t, p.GrantAsset(ctx, "acct", id, round))
}

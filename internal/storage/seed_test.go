package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSites_NormalizesAndDedupes(t *testing.T) {
	sites := SeedSites([]string{"YouTube.com", "www.youtube.com", "", "x.com"})
	require.Len(t, sites, 2)
	assert.Equal(t, "youtube.com", sites[0].Domain)
	assert.Equal(t, "x.com", sites[1].Domain)
	assert.NotEqual(t, sites[0].ID, sites[1].ID)
}

func TestSeed_FirstOpenOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	did, err := Seed(ctx, store, []string{"a.com", "b.com"})
	require.NoError(t, err)
	assert.True(t, did)

	sites, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)

	// User removed everything; the marker keeps defaults from coming back.
	require.NoError(t, store.ReplaceAll(ctx, nil))
	did, err = Seed(ctx, store, []string{"a.com", "b.com"})
	require.NoError(t, err)
	assert.False(t, did)

	sites, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestSeed_ExistingSitesAreKept(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, []Site{NewSite("mine.org")}))

	did, err := Seed(ctx, store, []string{"a.com"})
	require.NoError(t, err)
	assert.False(t, did)

	sites, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "mine.org", sites[0].Domain)

	_, ok, err := store.GetConfig(ctx, SeededKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

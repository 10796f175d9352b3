package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

func newRecord(tool string) *models.SearchRecord {
	return models.NewSearchRecord(tool, "google_flights", map[string]string{"departure_id": "JFK"})
}

func TestMemoryRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySearchRepository(10)

	created, err := repo.Create(ctx, newRecord("search_flights"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "search_flights", got.Tool)

	// returned records are copies
	got.Tool = "changed"
	again, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "search_flights", again.Tool)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
}

func TestMemoryRepositoryBoundedNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySearchRepository(3)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newRecord("search_hotels"))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.Equal(t, int64(5), two[0].ID)

	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryZeroSizeKeepsNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySearchRepository(0)

	created, err := repo.Create(ctx, newRecord("search_flights"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySearchRepository(10)
	now := time.Now().UTC()

	old := newRecord("search_flights")
	old.CreatedAt = now.Add(-48 * time.Hour)
	fresh := newRecord("search_hotels")
	fresh.CreatedAt = now

	_, err := repo.Create(ctx, old)
	require.NoError(t, err)
	_, err = repo.Create(ctx, fresh)
	require.NoError(t, err)

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "search_hotels", all[0].Tool)
}

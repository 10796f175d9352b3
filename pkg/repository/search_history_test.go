package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/database"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

// openTestDB connects to TEST_DATABASE_URL or skips the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.DropSearchHistoryTable(db))
	require.NoError(t, database.RunMigrations(db, logrus.New()))
	return db
}

func TestPostgresRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresSearchRepository(db)
	ctx := context.Background()

	rec := models.NewSearchRecord("search_flights", "google_flights", map[string]string{
		"departure_id": "JFK", "arrival_id": "LHR",
	})
	rec.RequestID = "req-1"
	rec.ResultCount = 3
	rec.Result = `[{"price": 420}]`
	rec.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)

	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "LHR", got.Params["arrival_id"])
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 3, got.ResultCount)
	assert.Empty(t, got.ErrorMessage)

	second := models.NewSearchRecord("search_hotels", "google_hotels", map[string]string{"q": "Paris"})
	second.Status = models.StatusError
	second.ErrorMessage = "SerpAPI error: quota"
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "search_hotels", list[0].Tool)

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
}

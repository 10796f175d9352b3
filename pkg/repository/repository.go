package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

// ErrNotFound is returned when a search record does not exist
var ErrNotFound = errors.New("search record not found")

// SearchRepository stores the history of tool calls
type SearchRepository interface {
	Create(ctx context.Context, record *models.SearchRecord) (*models.SearchRecord, error)
	GetByID(ctx context.Context, id int64) (*models.SearchRecord, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*models.SearchRecord, error)
	Delete(ctx context.Context, id int64) error
	// DeleteOlderThan removes records created before t and returns how many
	// were removed.
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
}

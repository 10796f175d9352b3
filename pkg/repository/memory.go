package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

// MemorySearchRepository keeps the most recent records in memory
type MemorySearchRepository struct {
	mu      sync.RWMutex
	records []*models.SearchRecord
	maxSize int
	nextID  int64
}

// NewMemorySearchRepository creates a repository holding at most maxSize
// records. maxSize <= 0 keeps nothing.
func NewMemorySearchRepository(maxSize int) *MemorySearchRepository {
	return &MemorySearchRepository{maxSize: maxSize, nextID: 1}
}

// Create stores a copy of record and assigns its ID
func (r *MemorySearchRepository) Create(ctx context.Context, record *models.SearchRecord) (*models.SearchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = r.nextID
	r.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if r.maxSize <= 0 {
		return record, nil
	}

	stored := *record
	r.records = append(r.records, &stored)
	if over := len(r.records) - r.maxSize; over > 0 {
		r.records = append([]*models.SearchRecord(nil), r.records[over:]...)
	}

	return record, nil
}

// GetByID retrieves a record by its ID
func (r *MemorySearchRepository) GetByID(ctx context.Context, id int64) (*models.SearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ID == id {
			c := *rec
			return &c, nil
		}
	}
	return nil, fmt.Errorf("search %d: %w", id, ErrNotFound)
}

// List returns records newest first
func (r *MemorySearchRepository) List(ctx context.Context, limit int) ([]*models.SearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*models.SearchRecord, 0, n)
	for i := len(r.records) - 1; i >= 0 && len(out) < n; i-- {
		c := *r.records[i]
		out = append(out, &c)
	}
	return out, nil
}

// Delete removes a record
func (r *MemorySearchRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("search %d: %w", id, ErrNotFound)
}

// DeleteOlderThan removes records created before t
func (r *MemorySearchRepository) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var removed int64
	for _, rec := range r.records {
		if rec.CreatedAt.Before(t) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(r.records); i++ {
		r.records[i] = nil
	}
	r.records = kept
	return removed, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/repository"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// DefaultRecentLimit is used when callers ask for a non-positive limit
const DefaultRecentLimit = 20

// HistoryService records tool calls and serves them back
type HistoryService struct {
	repo   repository.SearchRepository
	logger *logrus.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(repo repository.SearchRepository, logger *logrus.Logger) *HistoryService {
	return &HistoryService{repo: repo, logger: logger}
}

// Record stores one tool call. Failures are logged and swallowed so a
// broken history store never fails a search.
func (s *HistoryService) Record(ctx context.Context, record *models.SearchRecord) *models.SearchRecord {
	if record.RequestID == "" {
		record.RequestID = server.RequestIDFromContext(ctx)
	}

	saved, err := s.repo.Create(ctx, record)
	if err != nil {
		server.WrapWithContext(ctx, err, server.ErrorTypeDatabase, "failed to record search").LogError(s.logger)
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"search_id": saved.ID,
		"tool":      saved.Tool,
		"status":    saved.Status,
	}).Debug("Recorded search")
	return saved
}

// Recent returns the latest records without their result text
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*models.SearchRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeDatabase, "failed to list searches")
	}

	out := make([]*models.SearchRecord, len(records))
	for i, r := range records {
		out[i] = r.WithoutResult()
	}
	return out, nil
}

// Get returns one record including its result text
func (s *HistoryService) Get(ctx context.Context, id int64) (*models.SearchRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, id, err, "failed to get search")
	}
	return record, nil
}

// Delete removes one record
func (s *HistoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(ctx, id, err, "failed to delete search")
	}
	s.logger.WithField("search_id", id).Info("Deleted search")
	return nil
}

// Purge removes records older than age
func (s *HistoryService) Purge(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, server.NewErrorWithContext(ctx, server.ErrorTypeValidation, "purge age must be positive", age.String())
	}

	removed, err := s.repo.DeleteOlderThan(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, server.WrapWithContext(ctx, err, server.ErrorTypeDatabase, "failed to purge searches")
	}

	s.logger.Infof("Purged %d searches older than %s", removed, age)
	return removed, nil
}

func (s *HistoryService) lookupError(ctx context.Context, id int64, err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return server.NewErrorWithContext(ctx, server.ErrorTypeNotFound, fmt.Sprintf("search %d not found", id), "")
	}
	return server.WrapWithContext(ctx, err, server.ErrorTypeDatabase, message)
}

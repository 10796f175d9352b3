package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

// PostgresSearchRepository handles database operations for search history
type PostgresSearchRepository struct {
	db *sql.DB
}

// NewPostgresSearchRepository creates a new repository instance
func NewPostgresSearchRepository(db *sql.DB) *PostgresSearchRepository {
	return &PostgresSearchRepository{db: db}
}

const selectSearchColumns = `
	SELECT id, request_id, tool, engine, params, status, result_count, error_message, result, duration_ms, created_at
	FROM search_history
`

// Create inserts a new search record into the database
func (r *PostgresSearchRepository) Create(ctx context.Context, record *models.SearchRecord) (*models.SearchRecord, error) {
	params, err := json.Marshal(record.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search params: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_history (request_id, tool, engine, params, status, result_count, error_message, result, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		nullString(record.RequestID),
		record.Tool,
		record.Engine,
		string(params),
		record.Status,
		record.ResultCount,
		nullString(record.ErrorMessage),
		nullString(record.Result),
		record.DurationMS,
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create search record: %w", err)
	}

	return record, nil
}

// GetByID retrieves a search record by its ID
func (r *PostgresSearchRepository) GetByID(ctx context.Context, id int64) (*models.SearchRecord, error) {
	row := r.db.QueryRowContext(ctx, selectSearchColumns+` WHERE id = $1`, id)

	record, err := scanSearchRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("search %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get search record: %w", err)
	}
	return record, nil
}

// List returns records newest first
func (r *PostgresSearchRepository) List(ctx context.Context, limit int) ([]*models.SearchRecord, error) {
	query := selectSearchColumns + ` ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list search records: %w", err)
	}
	defer rows.Close()

	var records []*models.SearchRecord
	for rows.Next() {
		record, err := scanSearchRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search records: %w", err)
	}

	return records, nil
}

// Delete removes a search record from the database
func (r *PostgresSearchRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete search record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("search %d: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteOlderThan removes records created before t
func (r *PostgresSearchRepository) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM search_history WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to purge search history: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSearchRecord(row rowScanner) (*models.SearchRecord, error) {
	var (
		record       models.SearchRecord
		requestID    sql.NullString
		params       []byte
		errorMessage sql.NullString
		result       sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&requestID,
		&record.Tool,
		&record.Engine,
		&params,
		&record.Status,
		&record.ResultCount,
		&errorMessage,
		&result,
		&record.DurationMS,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &record.Params); err != nil {
			return nil, fmt.Errorf("failed to decode search params: %w", err)
		}
	}
	record.RequestID = requestID.String
	record.ErrorMessage = errorMessage.String
	record.Result = result.String

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

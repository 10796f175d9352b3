package database

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// CreateSearchHistoryTable creates the search_history table and its indexes
func CreateSearchHistoryTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS search_history (
		id BIGSERIAL PRIMARY KEY,
		request_id VARCHAR(64),
		tool VARCHAR(64) NOT NULL,
		engine VARCHAR(64) NOT NULL,
		params JSONB NOT NULL DEFAULT '{}'::jsonb,
		status VARCHAR(16) NOT NULL,
		result_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		result TEXT,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_search_history_tool ON search_history(tool);
	CREATE INDEX IF NOT EXISTS idx_search_history_status ON search_history(status);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create search_history table: %w", err)
	}
	return nil
}

// DropSearchHistoryTable drops the search_history table (useful for testing)
func DropSearchHistoryTable(db *sql.DB) error {
	if _, err := db.Exec(`DROP TABLE IF EXISTS search_history CASCADE;`); err != nil {
		return fmt.Errorf("failed to drop search_history table: %w", err)
	}
	return nil
}

// RunMigrations runs all database migrations
func RunMigrations(db *sql.DB, logger *logrus.Logger) error {
	logger.Info("Running database migrations...")

	if err := CreateSearchHistoryTable(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("All migrations completed successfully")
	return nil
}

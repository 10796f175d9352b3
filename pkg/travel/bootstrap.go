package travel

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/database"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/repository"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/serpapi"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/services"
)

// Runtime is a fully wired server together with the resources it owns
type Runtime struct {
	Config  *server.Config
	Logger  *logrus.Logger
	Client  *serpapi.Client
	History *services.HistoryService
	Server  *Server

	db *sql.DB
}

// Bootstrap builds the SerpAPI client, the history store and the MCP server
// from cfg. With DATABASE_URL set, history is kept in PostgreSQL; otherwise
// the last HistorySize searches are kept in memory.
func Bootstrap(cfg *server.Config, logger *logrus.Logger, version string) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Client: serpapi.NewClientFromConfig(cfg, logger),
	}

	var repo repository.SearchRepository
	switch {
	case cfg.DatabaseMode:
		db, err := database.InitializeDatabase(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize search history: %w", err)
		}
		rt.db = db
		repo = repository.NewPostgresSearchRepository(db)
		logger.Info("Search history stored in PostgreSQL")
	case cfg.HistorySize > 0:
		repo = repository.NewMemorySearchRepository(cfg.HistorySize)
		logger.Debugf("Search history kept in memory (last %d searches)", cfg.HistorySize)
	default:
		logger.Debug("Search history disabled")
	}
	if repo != nil {
		rt.History = services.NewHistoryService(repo, logger)
	}

	opts := OptionsFromConfig(cfg)
	opts.Version = version
	opts.History = rt.History
	opts.Logger = logger
	rt.Server = NewServer(rt.Client, opts)

	return rt, nil
}

// Close releases the database connection, if any
func (rt *Runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	rt.db = nil
	return database.Close()
}

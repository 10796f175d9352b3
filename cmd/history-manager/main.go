package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/database"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/logging"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/repository"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/services"
)

var logger *logrus.Logger

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printHelp()
		return
	}

	cfg, err := server.LoadConfig(server.Flags{})
	if err != nil {
		logging.New(logging.DefaultConfig()).Fatalf("Failed to load configuration: %v", err)
	}
	logger = logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	db, err := database.InitializeDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	history := services.NewHistoryService(repository.NewPostgresSearchRepository(db), logger)
	ctx := context.Background()

	switch command {
	case "list":
		handleList(ctx, history)
	case "show":
		handleShow(ctx, history)
	case "delete":
		handleDelete(ctx, history)
	case "purge":
		handlePurge(ctx, history)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("SerpAPI Travel search history manager")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list [limit]                   List recent searches (default 20)")
	fmt.Println("  show <id>                      Show one search including its result")
	fmt.Println("  delete <id>                    Delete a search by ID")
	fmt.Println("  purge <age>                    Delete searches older than age (e.g. 72h, 30d)")
	fmt.Println("  help                           Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  history-manager list 50")
	fmt.Println("  history-manager show 12")
	fmt.Println("  history-manager purge 30d")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_URL                   PostgreSQL connection string")
}

func handleList(ctx context.Context, history *services.HistoryService) {
	limit := services.DefaultRecentLimit
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			logger.Fatalf("Invalid limit %q", os.Args[2])
		}
		limit = n
	}

	records, err := history.Recent(ctx, limit)
	if err != nil {
		logger.Fatalf("Failed to list searches: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No searches recorded.")
		return
	}

	fmt.Printf("%-6s %-20s %-15s %-7s %-8s %s\n", "ID", "Created", "Tool", "Status", "Results", "Params")
	fmt.Println(strings.Repeat("-", 100))

	for _, r := range records {
		params := formatParams(r.Params)
		if len(params) > 40 {
			params = params[:40] + "..."
		}
		fmt.Printf("%-6d %-20s %-15s %-7s %-8d %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Tool, r.Status, r.ResultCount, params)
	}
}

func handleShow(ctx context.Context, history *services.HistoryService) {
	id := idArg("show")

	record, err := history.Get(ctx, id)
	if err != nil {
		logger.Fatalf("Failed to get search: %v", err)
	}

	fmt.Println(record.Summary())
	fmt.Printf("Request ID: %s\n", record.RequestID)
	fmt.Printf("Created:    %s\n", record.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("Params:     %s\n", formatParams(record.Params))
	if record.Result != "" {
		fmt.Println("")
		fmt.Println(record.Result)
	}
}

func handleDelete(ctx context.Context, history *services.HistoryService) {
	id := idArg("delete")

	if err := history.Delete(ctx, id); err != nil {
		logger.Fatalf("Failed to delete search: %v", err)
	}

	fmt.Printf("Successfully deleted search with ID %d\n", id)
}

func handlePurge(ctx context.Context, history *services.HistoryService) {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: history-manager purge <age>\n")
		os.Exit(1)
	}

	age, err := parseAge(os.Args[2])
	if err != nil {
		logger.Fatalf("Invalid age: %v", err)
	}

	removed, err := history.Purge(ctx, age)
	if err != nil {
		logger.Fatalf("Failed to purge searches: %v", err)
	}

	fmt.Printf("Removed %d searches older than %s\n", removed, os.Args[2])
}

func idArg(command string) int64 {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: history-manager %s <id>\n", command)
		os.Exit(1)
	}

	id, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil || id <= 0 {
		logger.Fatalf("Invalid ID: %s", os.Args[2])
	}
	return id
}

// parseAge accepts Go durations plus a day suffix ("30d")
func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number of days", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func formatParams(params map[string]string) string {
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(data)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/logging"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/travel"
)

// SearchConfig is one tool call in a batch file
type SearchConfig struct {
	Name string         `json:"name" yaml:"name"`
	Tool string         `json:"tool" yaml:"tool"`
	Args map[string]any `json:"args" yaml:"args"`
}

// BatchConfig defines the searches to run
type BatchConfig struct {
	Searches []SearchConfig `json:"searches" yaml:"searches"`
}

// BatchResult summarises one executed search
type BatchResult struct {
	Name     string
	Tool     string
	OK       bool
	Message  string
	Duration time.Duration
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: batch-search <searches.yaml>")
		os.Exit(1)
	}

	batch, err := loadBatch(os.Args[1])
	if err != nil {
		logging.New(logging.DefaultConfig()).Fatalf("Failed to read batch file: %v", err)
	}

	cfg, err := server.LoadConfig(server.Flags{})
	if err != nil {
		logging.New(logging.DefaultConfig()).Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if !cfg.HasAPIKey() {
		logger.Warn("SERPAPI_API_KEY is not set; every search will fail")
	}

	rt, err := travel.Bootstrap(cfg, logger, "batch")
	if err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	client := travel.NewLocalClient(rt.Server.MCPServer())
	if _, err := client.Initialize(ctx, "batch-search"); err != nil {
		logger.Fatalf("Failed to initialize session: %v", err)
	}

	fmt.Printf("Running %d searches from %s...\n", len(batch.Searches), os.Args[1])

	results := runBatch(ctx, client, batch)
	failed := 0
	for _, r := range results {
		mark := "✓"
		if !r.OK {
			mark = "✗"
			failed++
		}
		fmt.Printf("%s %-30s %-15s %6dms  %s\n", mark, r.Name, r.Tool, r.Duration.Milliseconds(), r.Message)
	}

	fmt.Printf("\nBatch completed: %d succeeded, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadBatch(path string) (*BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseBatch(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

func parseBatch(data []byte, isJSON bool) (*BatchConfig, error) {
	var batch BatchConfig
	var err error
	if isJSON {
		err = json.Unmarshal(data, &batch)
	} else {
		err = yaml.Unmarshal(data, &batch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}

	for i := range batch.Searches {
		s := &batch.Searches[i]
		if s.Tool == "" {
			return nil, fmt.Errorf("search %d has no tool", i+1)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s #%d", s.Tool, i+1)
		}
	}
	return &batch, nil
}

// searchCaller is the part of LocalClient used by runBatch
type searchCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*travel.ToolOutput, error)
}

func runBatch(ctx context.Context, client searchCaller, batch *BatchConfig) []BatchResult {
	results := make([]BatchResult, 0, len(batch.Searches))
	for _, s := range batch.Searches {
		start := time.Now()
		out, err := client.CallTool(ctx, s.Tool, s.Args)
		result := BatchResult{Name: s.Name, Tool: s.Tool, Duration: time.Since(start)}

		switch {
		case err != nil:
			result.Message = err.Error()
		case out.IsError:
			result.Message = firstLine(out.Text)
		default:
			if msg, failed := errorMessage(out.Text); failed {
				result.Message = msg
			} else {
				result.OK = true
				result.Message = firstLine(out.Text)
			}
		}
		results = append(results, result)
	}
	return results
}

// errorMessage reports whether a tool result is an {"error": ...} object
func errorMessage(text string) (string, bool) {
	var body map[string]any
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return "", false
	}
	msg, ok := body["error"]
	if !ok {
		return "", false
	}
	return fmt.Sprint(msg), true
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if len(line) > 60 {
		line = line[:60] + "..."
	}
	return line
}

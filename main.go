package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/inspect"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/logging"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/serpapi"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/travel"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var flags server.Flags

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "serpapi-travel-mcp",
		Short: "MCP server for flight and hotel search through SerpAPI",
		Long: `serpapi-travel-mcp exposes the search_flights and search_hotels tools over
the Model Context Protocol. It speaks stdio by default so an MCP client or
inspector can launch it directly; use --http to serve streamable HTTP instead.

Set SERPAPI_API_KEY in the environment or in a .env file before starting.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), serve)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "YAML configuration file")
	pf.StringVar(&flags.EnvFile, "env-file", "", "dotenv file to load (default .env)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format: text or json")
	root.Flags().StringVar(&flags.HTTPAddr, "http", "", "serve streamable HTTP on this address (e.g. :8080) instead of stdio")

	root.AddCommand(inspectCommand(), toolsCommand())
	return root
}

func inspectCommand() *cobra.Command {
	var historyFile string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Start an interactive inspector attached to an in-process server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), func(ctx context.Context, rt *travel.Runtime) error {
				client := travel.NewLocalClient(rt.Server.MCPServer())
				if _, err := client.Initialize(ctx, "serpapi-travel-inspect"); err != nil {
					return fmt.Errorf("failed to initialize inspector session: %w", err)
				}
				return inspect.New(client, os.Stdout).Run(ctx, historyFile)
			})
		},
	}
	cmd.Flags().StringVar(&historyFile, "history-file", inspect.DefaultHistoryFile(), "file used to keep command history")
	return cmd
}

func toolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the registered tools and their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			opts := travel.OptionsFromConfig(cfg)
			opts.Version = version
			opts.Logger = logger
			srv := travel.NewServer(serpapi.NewClientFromConfig(cfg, logger), opts)
			travel.PrintToolSummary(cmd.OutOrStdout(), srv.Tools())
			return nil
		},
	}
}

func serve(ctx context.Context, rt *travel.Runtime) error {
	if rt.Config.HTTPMode {
		return rt.Server.ServeHTTP(ctx, rt.Config.HTTPAddr)
	}
	return rt.Server.ServeStdio(ctx, os.Stdin, os.Stdout)
}

// setup loads configuration and builds the stderr logger
func setup() (*server.Config, *logrus.Logger, error) {
	cfg, err := server.LoadConfig(flags)
	if err != nil {
		logging.New(logging.DefaultConfig()).Errorf("Failed to load configuration: %v", err)
		return nil, nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

// run wires the server, logs the startup banner and calls fn with a context
// that is cancelled on SIGINT or SIGTERM.
func run(parent context.Context, fn func(context.Context, *travel.Runtime) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	logger.Infof("Starting %s %s (%s)", travel.ServerName, version, runtime.Version())
	if wd, err := os.Getwd(); err == nil {
		logger.Infof("Working directory: %s", wd)
	}
	cfg.LogConfiguration(logger)

	rt, err := travel.Bootstrap(cfg, logger, version)
	if err != nil {
		logger.Errorf("Failed to start server: %v", err)
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warnf("Failed to close search history: %v", err)
		}
	}()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, rt); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

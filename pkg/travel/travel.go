// Package travel exposes SerpAPI's Google Flights and Google Hotels engines as
// MCP tools.
//
// The server registers two tools, search_flights and search_hotels, plus
// read-only resources over the search history and a plan_trip prompt. It can
// be served over stdio or streamable HTTP, or driven in-process through
// LocalClient.
//
// # Quick Start
//
//	cfg, _ := server.LoadConfig(server.Flags{})
//	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
//	rt, _ := travel.Bootstrap(cfg, logger, "1.0.0")
//	defer rt.Close()
//	rt.Server.ServeStdio(ctx, os.Stdin, os.Stdout)
//
// # Tool Output
//
// Tool results are JSON text indented with two spaces. SerpAPI failures are
// reported as {"error": "..."} in a normal (non-error) result so that the
// calling model can read them; invalid arguments produce an MCP error result
// and never reach SerpAPI.
package travel

import (
	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/services"
)

// ServerName is the MCP implementation name reported to clients.
const ServerName = "serpapi-travel"

// Options controls how the travel tools build SerpAPI requests.
//
// Language, Country and Currency map to SerpAPI's hl, gl and currency
// parameters. History may be nil, in which case calls are not recorded and
// the history resources are not registered.
type Options struct {
	Version  string
	Language string
	Country  string
	Currency string
	APIKey   string
	History  *services.HistoryService
	Logger   *logrus.Logger
}

// OptionsFromConfig copies the request defaults out of cfg.
func OptionsFromConfig(cfg *server.Config) Options {
	return Options{
		Language: cfg.Language,
		Country:  cfg.Country,
		Currency: cfg.Currency,
		APIKey:   cfg.APIKey,
	}
}

func (o *Options) setDefaults() {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.Language == "" {
		o.Language = server.DefaultLanguage
	}
	if o.Country == "" {
		o.Country = server.DefaultCountry
	}
	if o.Currency == "" {
		o.Currency = server.DefaultCurrency
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

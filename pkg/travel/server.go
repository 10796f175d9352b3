package travel

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/serpapi"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// Server wires the travel tools, history resources and prompts into an MCP
// server.
type Server struct {
	mcp      *mcpserver.MCPServer
	searcher serpapi.Searcher
	opts     Options
	logger   *logrus.Logger
	tools    []mcp.Tool
	schemas  map[string]*argSchema
}

// NewServer creates the MCP server and registers everything on it.
func NewServer(searcher serpapi.Searcher, opts Options) *Server {
	opts.setDefaults()

	s := &Server{
		searcher: searcher,
		opts:     opts,
		logger:   opts.Logger,
		schemas:  make(map[string]*argSchema),
	}

	s.mcp = mcpserver.NewMCPServer(ServerName, opts.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithToolHandlerMiddleware(s.requestMiddleware),
		mcpserver.WithRecovery(),
		mcpserver.WithHooks(s.hooks()),
		mcpserver.WithInstructions("Search Google Flights and Google Hotels through SerpAPI. Dates use YYYY-MM-DD."),
	)

	s.addTool(flightsTool(), s.handleSearchFlights)
	s.addTool(hotelsTool(), s.handleSearchHotels)
	s.registerResources()
	s.registerPrompts()

	s.logger.Infof("Registered %d tools for %s", len(s.tools), ServerName)
	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Tools returns the registered tool definitions in registration order
func (s *Server) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) addTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	s.schemas[tool.Name] = mustCompileArgSchema(tool)
	s.tools = append(s.tools, tool)
	s.mcp.AddTool(tool, handler)
}

// searchOutcome is what a tool renders from one SerpAPI answer.
type searchOutcome struct {
	text   string
	count  int
	status string
	errMsg string
}

type renderFunc func(resp *serpapi.Response) (searchOutcome, error)

// runSearch performs one validated search and turns every failure into a
// JSON {"error": ...} payload. The returned result is never an MCP error.
func (s *Server) runSearch(ctx context.Context, tool, failurePrefix string, params url.Values, render renderFunc) *mcp.CallToolResult {
	start := time.Now()
	record := models.NewSearchRecord(tool, params.Get("engine"), flattenParams(params))

	outcome := s.search(ctx, failurePrefix, params, render)

	record.Status = outcome.status
	record.ResultCount = outcome.count
	record.ErrorMessage = outcome.errMsg
	record.Result = outcome.text
	record.DurationMS = time.Since(start).Milliseconds()
	if s.opts.History != nil {
		s.opts.History.Record(ctx, record)
	}

	return mcp.NewToolResultText(outcome.text)
}

func (s *Server) search(ctx context.Context, failurePrefix string, params url.Values, render renderFunc) searchOutcome {
	resp, err := s.searcher.Search(ctx, params)
	if err != nil {
		return errorOutcome(server.Message(err))
	}

	if resp.Has("error") {
		text, err := resp.Indented()
		if err != nil {
			return s.renderFailure(failurePrefix, err)
		}
		return searchOutcome{text: text, status: models.StatusError, errMsg: resp.ErrorMessage()}
	}

	outcome, err := render(resp)
	if err != nil {
		return s.renderFailure(failurePrefix, err)
	}
	return outcome
}

func (s *Server) renderFailure(prefix string, err error) searchOutcome {
	msg := fmt.Sprintf("%s: %v", prefix, err)
	s.logger.Error(msg)
	return errorOutcome(msg)
}

func errorOutcome(msg string) searchOutcome {
	text, err := encodeMessage(serpapi.ObjectField{Key: "error", Value: msg})
	if err != nil {
		text = `{"error": "internal error"}`
	}
	return searchOutcome{text: text, status: models.StatusError, errMsg: msg}
}

func encodeMessage(fields ...serpapi.ObjectField) (string, error) {
	raw, err := serpapi.EncodeObject(fields...)
	if err != nil {
		return "", err
	}
	return serpapi.Indent(raw)
}

// emptyOutcome reports that SerpAPI answered without results.
func emptyOutcome(message string, resp *serpapi.Response) (searchOutcome, error) {
	text, err := encodeMessage(
		serpapi.ObjectField{Key: "message", Value: message},
		serpapi.ObjectField{Key: "available_keys", Value: resp.Keys()},
	)
	if err != nil {
		return searchOutcome{}, err
	}
	return searchOutcome{text: text, status: models.StatusEmpty}, nil
}

func flattenParams(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k, vs := range params {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

package travel

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// requestMiddleware gives every tool call a request id and logs its
// duration. It runs outside the recovery middleware so panics are logged
// as failed calls too.
func (s *Server) requestMiddleware(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, requestID := server.EnsureRequestID(ctx)
		start := time.Now()

		result, err := next(ctx, request)

		fields := logrus.Fields{
			"tool":        request.Params.Name,
			"request_id":  requestID,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch {
		case err != nil:
			s.logger.WithFields(fields).WithError(err).Error("Tool call failed")
		case result != nil && result.IsError:
			s.logger.WithFields(fields).Warn("Tool call rejected")
		default:
			s.logger.WithFields(fields).Debug("Tool call completed")
		}
		return result, err
	}
}

func (s *Server) hooks() *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		s.logger.WithField("session_id", session.SessionID()).Debug("Client session registered")
	})

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		s.logger.WithFields(logrus.Fields{
			"tool":   message.Params.Name,
			"rpc_id": id,
		}).Debug("Calling tool")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		s.logger.WithFields(logrus.Fields{
			"method": string(method),
			"rpc_id": id,
		}).WithError(err).Warn("MCP request failed")
	})

	return hooks
}

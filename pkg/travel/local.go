package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RPCError is a JSON-RPC error answered by the server
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ToolOutput is the text of a tool result
type ToolOutput struct {
	Text    string
	IsError bool
}

// LocalClient drives an MCPServer in-process through HandleMessage, the same
// code path the stdio and HTTP transports use.
type LocalClient struct {
	srv    *mcpserver.MCPServer
	nextID atomic.Int64
}

// NewLocalClient creates a client for srv
func NewLocalClient(srv *mcpserver.MCPServer) *LocalClient {
	return &LocalClient{srv: srv}
}

// Initialize performs the MCP handshake
func (c *LocalClient) Initialize(ctx context.Context, clientName string) (*mcp.InitializeResult, error) {
	params := mcp.InitializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		ClientInfo:      mcp.Implementation{Name: clientName, Version: "1.0.0"},
	}
	var result mcp.InitializeResult
	if err := c.callInto(ctx, string(mcp.MethodInitialize), params, &result); err != nil {
		return nil, err
	}
	c.notify(ctx, "notifications/initialized")
	return &result, nil
}

// Call sends one request and returns the raw result
func (c *LocalClient) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	msg := map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	reply := c.srv.HandleMessage(ctx, raw)
	if reply == nil {
		return nil, fmt.Errorf("no response to %s", method)
	}

	encoded, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s response: %w", method, err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(encoded, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}

func (c *LocalClient) callInto(ctx context.Context, method string, params any, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *LocalClient) notify(ctx context.Context, method string) {
	raw, _ := json.Marshal(map[string]any{"jsonrpc": mcp.JSONRPC_VERSION, "method": method})
	c.srv.HandleMessage(ctx, raw)
}

// ListTools returns the registered tools
func (c *LocalClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var result mcp.ListToolsResult
	if err := c.callInto(ctx, string(mcp.MethodToolsList), nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool and joins its text content
func (c *LocalClient) CallTool(ctx context.Context, name string, args map[string]any) (*ToolOutput, error) {
	raw, err := c.Call(ctx, string(mcp.MethodToolsCall), map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}

	result, err := mcp.ParseCallToolResult(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tool result: %w", err)
	}

	out := &ToolOutput{IsError: result.IsError}
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			out.Text += text.Text
		}
	}
	return out, nil
}

// ListResources returns the static resources
func (c *LocalClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	var result mcp.ListResourcesResult
	if err := c.callInto(ctx, string(mcp.MethodResourcesList), nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ListResourceTemplates returns the resource templates
func (c *LocalClient) ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error) {
	var result mcp.ListResourceTemplatesResult
	if err := c.callInto(ctx, string(mcp.MethodResourcesTemplatesList), nil, &result); err != nil {
		return nil, err
	}
	return result.ResourceTemplates, nil
}

// ReadResource returns the text of a resource
func (c *LocalClient) ReadResource(ctx context.Context, uri string) (string, error) {
	raw, err := c.Call(ctx, string(mcp.MethodResourcesRead), map[string]any{"uri": uri})
	if err != nil {
		return "", err
	}

	result, err := mcp.ParseReadResourceResult(&raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode resource: %w", err)
	}

	var text string
	for _, content := range result.Contents {
		if tc, ok := mcp.AsTextResourceContents(content); ok {
			text += tc.Text
		}
	}
	return text, nil
}

// ListPrompts returns the registered prompts
func (c *LocalClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	var result mcp.ListPromptsResult
	if err := c.callInto(ctx, string(mcp.MethodPromptsList), nil, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPrompt renders a prompt
func (c *LocalClient) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	raw, err := c.Call(ctx, string(mcp.MethodPromptsGet), map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}
	return mcp.ParseGetPromptResult(&raw)
}

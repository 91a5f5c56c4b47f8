package kit

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecodeResult carries the decoded request and optional context values
// extracted from the tool call.
type MCPDecodeResult struct {
	Request any
	UserID  string
}

// MCPDecoder turns a raw tool call into an endpoint request.
type MCPDecoder func(req mcp.CallToolRequest) (*MCPDecodeResult, error)

// RegisterMCPTool registers an Endpoint as an MCP tool. The decoder maps tool
// arguments onto the endpoint's request type; the endpoint result is returned
// to the client as JSON text.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ctx = WithTransport(ctx, "mcp")
		if decoded.UserID != "" {
			ctx = WithUserID(ctx, decoded.UserID)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

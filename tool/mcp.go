package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/actormesh/internal/util"
)

// MCPClient is the subset of the MCP client used for tool discovery and
// invocation. github.com/mark3labs/mcp-go clients satisfy it.
type MCPClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// DiscoverMCPTools lists the tools exposed by an MCP server and adapts each
// one into a Tool. The caller owns the client's lifecycle; discovered tools
// stop working once the client is closed.
//
// MCP tools are treated as non-idempotent: the protocol gives no effect
// guarantees, so they are never retried automatically.
func DiscoverMCPTools(ctx context.Context, client MCPClient) ([]Tool, error) {
	result, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp list tools: %w", err)
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, newMCPTool(client, t))
	}
	return tools, nil
}

// mcpTool adapts one MCP server tool to the Tool interface.
type mcpTool struct {
	client MCPClient
	name   string
	meta   Metadata
	schema map[string]any
}

func newMCPTool(client MCPClient, t mcp.Tool) *mcpTool {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, r := range t.InputSchema.Required {
		required[r] = true
	}

	var params []Parameter
	for name, prop := range t.InputSchema.Properties {
		p := Parameter{Name: name, Type: "string", Required: required[name]}
		if propMap, ok := prop.(map[string]any); ok {
			if typ, ok := propMap["type"].(string); ok {
				p.Type = typ
			}
			if desc, ok := propMap["description"].(string); ok {
				p.Description = desc
			}
		}
		params = append(params, p)
	}

	meta := Metadata{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
	return &mcpTool{client: client, name: t.Name, meta: meta, schema: meta.Schema()}
}

// Metadata implements Tool.
func (t *mcpTool) Metadata() Metadata { return t.meta }

// Validate implements Tool.
func (t *mcpTool) Validate(args map[string]any) error {
	return util.ValidateParameters(args, t.schema)
}

// Execute implements Tool. Server side errors arrive as failed results.
func (t *mcpTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return FailureResult(fmt.Sprintf("mcp call: %v", err)), nil
	}

	content := extractMCPContent(result)
	if result.IsError {
		return FailureResult(content), nil
	}
	return SuccessResult(content), nil
}

// extractMCPContent flattens MCP result content blocks into a string.
func extractMCPContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

var _ Tool = (*mcpTool)(nil)

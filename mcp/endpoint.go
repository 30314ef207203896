package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/deliblade"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `Deliblade answers questions about a deli's catalog and takes orders, providing:

1. **Inventory Lookup**: Check live stock and price for a named item
2. **Semantic Search**: Find catalog items using natural language queries
3. **Agent Routing**: Full conversational replies, routed between a deterministic fast path and a retrieval-augmented path
4. **Ordering**: Draft, pay, and finalize orders against live stock

Available operations:
- tools/list: Get all available tools
- tools/call: Execute lookup_inventory, search_items, or route_message

Prices and stock are always re-read from the catalog at call time.`

func InitializeEndpoint(svc deliblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "deliblade",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc deliblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

// Tools exposed over MCP. Ordering endpoints stay off this surface;
// they are served over HTTP and NATS only.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        deliblade.ToolLookupInventory,
			Description: "Check live stock and price for a catalog item by name.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Item name, e.g. \"turkey club\"",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "search_items",
			Description: "Semantic search over in-stock catalog items.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Natural language query",
					},
					"top_k": map[string]any{
						"type":        "number",
						"description": "Maximum number of results",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "route_message",
			Description: "Answer a customer message, routing between the fast and retrieval paths.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "The customer message",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": "Conversation session identifier",
					},
				},
				Required: []string{"message"},
			},
		},
	}
}

func ListToolsEndpoint(svc deliblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc deliblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		args, ok := params.Arguments.(map[string]any)
		if !ok {
			args = make(map[string]any)
		}

		result, err := callTool(ctx, svc, params.Name, args)
		if err != nil {
			return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func callTool(ctx context.Context, svc deliblade.Service, name string, args map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case deliblade.ToolLookupInventory:
		query, _ := args["query"].(string)

		result, err := svc.LookupInventory(ctx, query)
		if err != nil {
			return nil, err
		}

		return jsonResult(result)

	case "search_items":
		query, _ := args["query"].(string)

		topK := 0
		if k, ok := args["top_k"].(float64); ok {
			topK = int(k)
		}

		results, err := svc.Search(ctx, query, topK, 0)
		if err != nil {
			return nil, err
		}

		return jsonResult(results)

	case "route_message":
		message, _ := args["message"].(string)
		sessionID, _ := args["session_id"].(string)

		reply, err := svc.RouteMessage(ctx, message, sessionID)
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(reply.Reply), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(data)), nil
}

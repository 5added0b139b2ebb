// Package mcpserver implements the MCP JSON-RPC 2.0 tool dispatcher: the
// registered tool table, the stdio and HTTP transports, the resource
// endpoint, and the request gate wiring shared by both transports.
package mcpserver

import (
	"context"
	"encoding/json"
)

// rpcRequest is one JSON-RPC 2.0 request frame.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is one JSON-RPC 2.0 response frame. Result and Error are
// mutually exclusive.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams is the shape of tools/call's params.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDescriptor is the public, client-visible shape of a registered tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Tier        string         `json:"-"`
}

// objectSchema builds a minimal JSON Schema object descriptor for a tool's
// arguments: each entry in props is a property name to its {"type": ...}
// sub-schema, and required names which of them are mandatory.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func stringArrayProp(description string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
}

// ToolHandler executes one tool call. The Gate has already run by the time
// a handler is invoked; a handler that needs the caller's tier reads the
// Gate's decision from ctx via decisionFromContext.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// toolEntry pairs a descriptor with its handler.
type toolEntry struct {
	descriptor ToolDescriptor
	handler    ToolHandler
}

// contentResult is the MCP tools/call result envelope: a list of content
// blocks, each carrying a type and text.
type contentResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string) contentResult {
	return contentResult{Content: []contentBlock{{Type: "text", Text: text}}}
}

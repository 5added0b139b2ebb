package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/midos-mcp/midos-mcp/internal/gate"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "midos"
)

// Server is the JSON-RPC 2.0 dispatcher: it owns the registered tool table,
// the request gate, and the resource endpoint, and is shared unchanged by
// the stdio and HTTP transports.
type Server struct {
	version string
	gate    Gater
	tools   map[string]toolEntry
	order   []string
	deps    *Deps
}

// Gater is the subset of internal/gate.Gate the dispatcher needs, narrowed
// so tests can substitute a stub without constructing a real key store.
type Gater interface {
	Check(headers http.Header, toolName string) (gate.Decision, error)
}

// NewServer builds a dispatcher with the full tool table registered against
// deps. version is reported from initialize's serverInfo.
func NewServer(version string, gater Gater, deps *Deps) *Server {
	s := &Server{version: version, gate: gater, tools: map[string]toolEntry{}, deps: deps}
	s.registerTools()
	return s
}

func (s *Server) register(entry toolEntry) {
	s.tools[entry.descriptor.Name] = entry
	s.order = append(s.order, entry.descriptor.Name)
}

// Handle dispatches one JSON-RPC request frame, given the inbound HTTP-style
// headers used for Gate resolution (stdio synthesizes an empty header set,
// which IsLocalhost treats as non-local but IsFreeTool still allows).
func (s *Server) Handle(ctx context.Context, headers http.Header, raw json.RawMessage) json.RawMessage {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return encodeResponse(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcErrParse, Message: "invalid JSON"}})
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return encodeResponse(rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: rpcErrInvalidRequest, Message: "missing jsonrpc or method"}})
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = s.handleInitialize()
	case "tools/list":
		resp.Result = s.handleToolsList(headers)
	case "tools/call":
		result, err := s.handleToolsCall(ctx, headers, req.Params)
		if err != nil {
			resp.Error = mapError(err)
		} else {
			resp.Result = result
		}
	case "resources/read":
		decision, err := s.gate.Check(headers, "get_skill")
		if err != nil {
			resp.Error = mapError(err)
			break
		}
		ctx = withDecision(ctx, decision)
		result, rpcErr := s.handleResourcesReadDispatch(ctx, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &rpcError{Code: rpcErrMethodNotFound, Message: "unknown method: " + req.Method}
	}

	return encodeResponse(resp)
}

func encodeResponse(resp rpcResponse) json.RawMessage {
	data, err := json.Marshal(resp)
	if err != nil {
		return json.RawMessage(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"failed to encode response"}}`)
	}
	return data
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleInitialize() initializeResult {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      serverInfo{Name: serverName, Version: s.version},
		Capabilities:    map[string]any{"tools": map[string]any{}},
	}
}

type toolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// handleToolsList returns every registered tool's descriptor. The Gate has
// no list-time filtering of its own here (tiering is enforced at call time)
// and the descriptors are returned sorted by name for a stable response.
func (s *Server) handleToolsList(_ http.Header) toolsListResult {
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	descriptors := make([]ToolDescriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, s.tools[name].descriptor)
	}
	return toolsListResult{Tools: descriptors}
}

func (s *Server) handleToolsCall(ctx context.Context, headers http.Header, params json.RawMessage) (contentResult, error) {
	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return contentResult{}, invalidParamsError("malformed tools/call params")
	}

	requestID := generateRequestID()
	slog.Info("tool call started", slog.String("request_id", requestID), slog.String("tool", call.Name))
	start := time.Now()

	entry, ok := s.tools[call.Name]
	if !ok {
		return contentResult{}, invalidParamsError("unknown tool: " + call.Name)
	}

	decision, err := s.gate.Check(headers, call.Name)
	if err != nil {
		logToolResult(requestID, call.Name, time.Since(start), err)
		return contentResult{}, err
	}

	if err := enforceToolTier(entry.descriptor.Tier, decision); err != nil {
		logToolResult(requestID, call.Name, time.Since(start), err)
		return contentResult{}, err
	}

	ctx = withDecision(ctx, decision)
	text, err := entry.handler(ctx, call.Arguments)
	logToolResult(requestID, call.Name, time.Since(start), err)
	if err != nil {
		return contentResult{Content: []contentBlock{{Type: "text", Text: err.Error()}}, IsError: true}, nil
	}
	return textResult(text), nil
}

func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func logToolResult(requestID, tool string, duration time.Duration, err error) {
	if err != nil {
		slog.Error("tool call failed",
			slog.String("request_id", requestID),
			slog.String("tool", tool),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("tool call completed",
		slog.String("request_id", requestID),
		slog.String("tool", tool),
		slog.Duration("duration", duration))
}

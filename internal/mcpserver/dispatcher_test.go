package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midos-mcp/midos-mcp/internal/gate"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, _ := newTestServerWithKeyStore(t)
	return s
}

func newTestServerWithKeyStore(t *testing.T) (*Server, *gate.KeyStore) {
	t.Helper()
	s, keys, _ := newTestServerFull(t)
	return s, keys
}

func newTestServerFull(t *testing.T) (*Server, *gate.KeyStore, string) {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"knowledge", "skills", "protocols", "eureka", "truth", "inbox"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills", "code-review.md"), []byte(
		strRepeat("Reviews pull requests for correctness and style. ", 30)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protocols", "onboarding.md"), []byte("# Onboarding\nwelcome"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eureka", "caching.md"), []byte("cache invalidation is hard"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knowledge", "notes.md"), []byte("retrieval pipeline notes about vector search"), 0o644))

	usagePath := filepath.Join(dir, "usage.json")
	keys := gate.NewKeyStore(filepath.Join(dir, "keys.json"))
	usage := gate.NewQuotaLedger(usagePath)
	g := gate.NewGate(keys, usage)

	deps := &Deps{
		KnowledgeDir: filepath.Join(dir, "knowledge"),
		SkillsDir:    filepath.Join(dir, "skills"),
		ProtocolsDir: filepath.Join(dir, "protocols"),
		EurekasDir:   filepath.Join(dir, "eureka"),
		TruthsDir:    filepath.Join(dir, "truth"),
		InboxDir:     filepath.Join(dir, "inbox"),
		StartedAt:    time.Now(),
	}

	return NewServer("test", g, deps), keys, usagePath
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func rpcCall(t *testing.T, s *Server, headers http.Header, method string, params any) rpcResponse {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}
	req := rpcRequest{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: method, Params: raw}
	reqData, err := json.Marshal(req)
	require.NoError(t, err)

	respData := s.Handle(context.Background(), headers, reqData)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(respData, &resp))
	return resp
}

func TestInitialize_ReturnsProtocolVersionAndServerName(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "initialize", nil)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result initializeResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, "midos", result.ServerInfo.Name)
}

func TestToolsList_ContainsEveryRegisteredTool(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/list", nil)
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var result toolsListResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Tools, 17)
}

func TestToolsCall_ListSkillsSucceedsWithNoAuth(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "list_skills"})
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var result contentResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Contains(t, result.Content[0].Text, "Available skills")
}

func TestToolsCall_GetEurekaRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "get_eureka", Arguments: map[string]any{"name": "caching"}})

	if resp.Error != nil {
		assert.True(t, strings.Contains(resp.Error.Message, "requires") || strings.Contains(resp.Error.Message, "tier"))
		return
	}
	data, _ := json.Marshal(resp.Result)
	var result contentResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "requires")
}

func TestToolsCall_GetSkillTruncatesForUnauthenticatedCallers(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "get_skill", Arguments: map[string]any{"name": "code-review"}})
	require.Nil(t, resp.Error)

	data, _ := json.Marshal(resp.Result)
	var result contentResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Less(t, len(result.Content[0].Text), 800)
	assert.Contains(t, result.Content[0].Text, "Full content")
}

func TestToolsCall_GetSkillRejectsPathTraversal(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "get_skill", Arguments: map[string]any{"name": "../../../etc/passwd"}})

	var text string
	if resp.Error != nil {
		text = resp.Error.Message
	} else {
		data, _ := json.Marshal(resp.Result)
		var result contentResult
		require.NoError(t, json.Unmarshal(data, &result))
		text = result.Content[0].Text
	}
	assert.NotContains(t, text, "passwd")
}

func TestToolsCall_ResearchYouTubeRejectsNonYouTubeHost(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, localhostHeaders(), "tools/call", toolCallParams{Name: "research_youtube", Arguments: map[string]any{"url": "https://evil.example.com/x"}})

	data, _ := json.Marshal(resp.Result)
	var result contentResult
	_ = json.Unmarshal(data, &result)

	var text string
	if resp.Error != nil {
		text = resp.Error.Message
	} else {
		text = result.Content[0].Text
	}
	assert.Contains(t, text, "youtube")

	entries, err := os.ReadDir(s.deps.InboxDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleResourcesRead_RejectsUnsafeNames(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "resources/read", resourceReadParams{URI: "resource://skill/../../etc/passwd"})
	require.NotNil(t, resp.Error)
}

func localhostHeaders() http.Header {
	h := http.Header{}
	h.Set("Host", "localhost")
	return h
}

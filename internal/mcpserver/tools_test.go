package mcpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midos-mcp/midos-mcp/internal/gate"
)

func TestToolsCall_PoolSignalRequiresAdminTier(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "pool_signal", Arguments: map[string]any{"signal": "pause"}})
	require.NotNil(t, resp.Error)
}

func TestToolsCall_PoolSignalRejectsLocalhostProTier(t *testing.T) {
	// Localhost bypasses auth at "pro", one rank below the "admin" pool_signal
	// requires, so even a local caller needs an explicit team-tier key.
	s := newTestServer(t)
	resp := rpcCall(t, s, localhostHeaders(), "tools/call", toolCallParams{Name: "pool_signal", Arguments: map[string]any{"signal": "pause"}})
	require.NotNil(t, resp.Error)
}

func TestToolsCall_PoolSignalSucceedsWithTeamKey(t *testing.T) {
	s, keys := newTestServerWithKeyStore(t)
	key, err := keys.Generate("admin-caller", gate.TierTeam)
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+key)

	resp := rpcCall(t, s, headers, "tools/call", toolCallParams{Name: "pool_signal", Arguments: map[string]any{"signal": "pause"}})
	require.Nil(t, resp.Error)

	entries, err := os.ReadDir(s.deps.InboxDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestToolsCall_ChunkCodeDropsCommandFile(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, localhostHeaders(), "tools/call", toolCallParams{Name: "chunk_code", Arguments: map[string]any{"path": "main.go"}})
	require.Nil(t, resp.Error)

	entries, err := os.ReadDir(s.deps.InboxDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(s.deps.InboxDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_code")
}

func TestToolsCall_SemanticSearchDegradesWithoutTable(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, localhostHeaders(), "tools/call", toolCallParams{Name: "semantic_search", Arguments: map[string]any{"query": "vector retrieval pipeline"}})
	require.Nil(t, resp.Error)

	data, _ := marshalContentText(t, resp)
	assert.Contains(t, data, "degraded")
}

func TestToolsCall_GetProtocolFindsCaseInsensitively(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "get_protocol", Arguments: map[string]any{"name": "ONBOARDING"}})
	require.Nil(t, resp.Error)

	data, _ := marshalContentText(t, resp)
	assert.Contains(t, data, "welcome")
}

func TestToolsCall_UnknownToolIsInvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := rpcCall(t, s, http.Header{}, "tools/call", toolCallParams{Name: "does_not_exist"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcErrInvalidParams, resp.Error.Code)
}

func marshalContentText(t *testing.T, resp rpcResponse) (string, error) {
	t.Helper()
	var result contentResult
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &result))
	return result.Content[0].Text, nil
}

package mcpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midos-mcp/midos-mcp/internal/gate"
)

// TestToolsCall_QuotaExceededAtTierLimit seeds the usage ledger at a pro key's
// monthly limit so the next call is the 25,001st for the month, and checks
// that it's rejected with the count/limit the caller needs to know.
func TestToolsCall_QuotaExceededAtTierLimit(t *testing.T) {
	s, keys, usagePath := newTestServerFull(t)
	key, err := keys.Generate("heavy-user", gate.TierPro)
	require.NoError(t, err)

	limit := gate.LimitFor(gate.TierPro)
	entries := map[string]gate.UsageEntry{
		key: {Month: time.Now().UTC().Format("2006-01"), Count: limit},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(usagePath, data, 0o600))

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+key)

	resp := rpcCall(t, s, headers, "tools/call", toolCallParams{Name: "list_skills"})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "quota")
}

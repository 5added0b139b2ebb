package gate

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	dir := t.TempDir()
	keys := NewKeyStore(filepath.Join(dir, "keys.json"))
	usage := NewQuotaLedger(filepath.Join(dir, "usage.json"))
	return NewGate(keys, usage)
}

func headersWithHost(host string) http.Header {
	h := http.Header{}
	h.Set("Host", host)
	return h
}

func TestIsLocalhost_DirectHostConnection(t *testing.T) {
	assert.True(t, IsLocalhost(headersWithHost("localhost:8080")))
	assert.True(t, IsLocalhost(headersWithHost("127.0.0.1:8080")))
}

func TestIsLocalhost_RemoteHostIsNotLocal(t *testing.T) {
	assert.False(t, IsLocalhost(headersWithHost("example.com:443")))
}

func TestIsLocalhost_ForwardedForTakesPrecedence(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "203.0.113.5, 127.0.0.1")
	h.Set("Host", "localhost")
	assert.False(t, IsLocalhost(h), "a remote forwarded address should not be treated as local even behind a local proxy host header")
}

func TestGate_LocalhostBypassesAuthEntirely(t *testing.T) {
	g := newTestGate(t)
	decision, err := g.Check(headersWithHost("localhost"), "episodic_store")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, TierPro, decision.Tier)
}

func TestGate_UnauthenticatedFreeTool(t *testing.T) {
	g := newTestGate(t)
	decision, err := g.Check(headersWithHost("example.com"), "search_knowledge")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, TierFree, decision.Tier)
}

func TestGate_UnauthenticatedPremiumToolRejected(t *testing.T) {
	g := newTestGate(t)
	_, err := g.Check(headersWithHost("example.com"), "episodic_store")
	require.Error(t, err)
	merr, ok := err.(*merrors.MidosError)
	require.True(t, ok)
	assert.Equal(t, merrors.ErrCodeTierForbidden, merr.Code)
}

func TestGate_InvalidKeyRejected(t *testing.T) {
	g := newTestGate(t)
	h := headersWithHost("example.com")
	h.Set("Authorization", "Bearer midos_sk_"+"0000000000000000000000000000000000000000000000")

	_, err := g.Check(h, "search_knowledge")
	require.Error(t, err)
	merr, ok := err.(*merrors.MidosError)
	require.True(t, ok)
	assert.Equal(t, merrors.ErrCodeAuthInvalid, merr.Code)
}

func TestGate_RevokedKeyRejected(t *testing.T) {
	g := newTestGate(t)
	key, err := g.keys.Generate("test", TierDev)
	require.NoError(t, err)
	_, err = g.keys.Revoke(key)
	require.NoError(t, err)

	h := headersWithHost("example.com")
	h.Set("Authorization", "Bearer "+key)

	_, err = g.Check(h, "search_knowledge")
	require.Error(t, err)
	merr, ok := err.(*merrors.MidosError)
	require.True(t, ok)
	assert.Equal(t, merrors.ErrCodeAuthInvalid, merr.Code)
}

func TestGate_ValidKeyGrantsPremiumAccess(t *testing.T) {
	g := newTestGate(t)
	key, err := g.keys.Generate("test", TierPro)
	require.NoError(t, err)

	h := headersWithHost("example.com")
	h.Set("Authorization", "Bearer "+key)

	decision, err := g.Check(h, "episodic_store")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, TierPro, decision.Tier)
}

func TestGate_QuotaExceededRejectsFurtherCalls(t *testing.T) {
	g := newTestGate(t)
	h := headersWithHost("198.51.100.1")
	h.Set("X-Forwarded-For", "198.51.100.1")

	for i := 0; i < 100; i++ {
		_, err := g.Check(h, "search_knowledge")
		require.NoError(t, err)
	}

	_, err := g.Check(h, "search_knowledge")
	require.Error(t, err)
	merr, ok := err.(*merrors.MidosError)
	require.True(t, ok)
	assert.Equal(t, merrors.ErrCodeQuotaExceeded, merr.Code)
}

func TestAnonymousID_StableForSameIP(t *testing.T) {
	assert.Equal(t, AnonymousID("1.2.3.4"), AnonymousID("1.2.3.4"))
}

func TestAnonymousID_DiffersAcrossIPs(t *testing.T) {
	assert.NotEqual(t, AnonymousID("1.2.3.4"), AnonymousID("5.6.7.8"))
}

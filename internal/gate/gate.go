package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
	"github.com/midos-mcp/midos-mcp/internal/metrics"
)

// FreeTools is the set of tool names reachable without an API key.
// Anything outside this set is premium and requires tier != free, key != "".
var FreeTools = map[string]struct{}{
	"search_knowledge": {},
	"list_skills":      {},
	"get_skill":        {},
	"get_protocol":     {},
	"hive_status":      {},
	"project_status":   {},
	"agent_handshake":  {},
}

// IsFreeTool reports whether toolName is callable without a key.
func IsFreeTool(toolName string) bool {
	_, ok := FreeTools[toolName]
	return ok
}

var localAddrs = map[string]struct{}{
	"127.0.0.1": {}, "::1": {}, "localhost": {},
}

// IsLocalhost inspects standard proxy headers, falling back to Host, to
// decide whether a request originates from the local machine. Localhost
// callers bypass auth entirely.
func IsLocalhost(headers http.Header) bool {
	if forwarded := firstForwardedFor(headers.Get("X-Forwarded-For")); forwarded != "" {
		_, ok := localAddrs[forwarded]
		return ok
	}
	if realIP := headers.Get("X-Real-Ip"); realIP != "" {
		_, ok := localAddrs[realIP]
		return ok
	}
	host := headers.Get("Host")
	if host == "" {
		return false
	}
	hostName, _, found := strings.Cut(host, ":")
	if !found {
		hostName = host
	}
	_, ok := localAddrs[hostName]
	return ok
}

func firstForwardedFor(value string) string {
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}

// bearerPrefix-style extraction of the API key from an Authorization header.
func extractBearerKey(headers http.Header) (string, bool) {
	auth := headers.Get("Authorization")
	if auth == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, KeyPrefix) {
		return "", false
	}
	return token, true
}

// AnonymousID derives a stable pseudonymous identifier for quota tracking
// from a request's client IP, so unauthenticated callers share a single
// monthly bucket per IP instead of bypassing quota entirely.
func AnonymousID(ip string) string {
	if ip == "" {
		ip = "anonymous"
	}
	sum := sha256.Sum256([]byte(ip))
	return "anon_" + hex.EncodeToString(sum[:])[:16]
}

// ClientIP extracts the caller's IP from the same forwarded headers
// IsLocalhost checks, falling back to "anonymous". Unlike IsLocalhost, it
// never consults the Host header.
func ClientIP(headers http.Header) string {
	if forwarded := firstForwardedFor(headers.Get("X-Forwarded-For")); forwarded != "" {
		return forwarded
	}
	if realIP := headers.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	return "anonymous"
}

// Decision is the outcome of gating one tool call.
type Decision struct {
	Allowed bool
	Tier    Tier
	Count   int
	Limit   int
}

// Gate combines localhost bypass, key resolution, tier-based tool gating,
// and quota enforcement behind one call per tool invocation.
type Gate struct {
	keys    *KeyStore
	usage   *QuotaLedger
	metrics *metrics.Registry
}

// NewGate constructs a Gate over the given key store and quota ledger.
func NewGate(keys *KeyStore, usage *QuotaLedger) *Gate {
	return &Gate{keys: keys, usage: usage}
}

// SetMetrics wires a metrics registry into the Gate so every Check call
// records its admission or rejection. Left nil (the default), Check behaves
// exactly as before: the metrics package guards every method against a nil
// receiver, so this is a clean opt-in.
func (g *Gate) SetMetrics(m *metrics.Registry) {
	g.metrics = m
}

// resolveTier mirrors the original implementation's precedence: localhost
// bypasses auth entirely at "pro"; otherwise a present, valid bearer key
// resolves to its stored tier; an absent key is "free"; a present but
// unknown/revoked key is reported distinctly so callers can reject it with
// a clear error rather than silently downgrading to free.
func (g *Gate) resolveTier(headers http.Header) (tier Tier, key string, invalid bool, err error) {
	if IsLocalhost(headers) {
		return TierPro, "", false, nil
	}

	token, ok := extractBearerKey(headers)
	if !ok {
		return TierFree, "", false, nil
	}

	resolvedTier, active, found, lookupErr := g.keys.Lookup(token)
	if lookupErr != nil {
		return "", "", false, lookupErr
	}
	if !found || !active {
		return "", token, true, nil
	}

	return resolvedTier, token, false, nil
}

// Check gates a single tool call: resolves the caller's tier, rejects
// invalid keys and unauthenticated premium access, then checks and
// increments quota. Returns a *merrors.MidosError for every rejection
// path so callers can map it straight to a JSON-RPC error.
func (g *Gate) Check(headers http.Header, toolName string) (Decision, error) {
	tier, key, invalid, err := g.resolveTier(headers)
	if err != nil {
		return Decision{}, err
	}

	if invalid {
		return Decision{}, merrors.New(merrors.ErrCodeAuthInvalid,
			"invalid or revoked API key", nil).
			WithSuggestion("generate a new key with 'midos-mcp keys generate'")
	}

	if !IsFreeTool(toolName) && tier == TierFree && key == "" {
		return Decision{}, merrors.New(merrors.ErrCodeTierForbidden,
			toolName+" requires an API key", nil).
			WithDetail("tool", toolName).
			WithSuggestion("generate a key with 'midos-mcp keys generate'")
	}

	identifier := key
	if identifier == "" {
		identifier = AnonymousID(ClientIP(headers))
	}

	allowed, count, limit := g.usage.CheckAndIncrement(identifier, tier)
	if !allowed {
		g.metrics.RecordQuotaRejection(string(tier))
		return Decision{}, merrors.New(merrors.ErrCodeQuotaExceeded,
			"monthly query quota exceeded", nil).
			WithDetail("count", strconv.Itoa(count)).
			WithDetail("limit", strconv.Itoa(limit)).
			WithSuggestion("upgrade your tier for a higher quota")
	}

	g.metrics.RecordQuery(toolName, string(tier))
	return Decision{Allowed: true, Tier: tier, Count: count, Limit: limit}, nil
}

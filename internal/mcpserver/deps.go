package mcpserver

import (
	"time"

	"github.com/midos-mcp/midos-mcp/internal/handshake"
	"github.com/midos-mcp/midos-mcp/internal/metrics"
	"github.com/midos-mcp/midos-mcp/internal/search"
	"github.com/midos-mcp/midos-mcp/internal/store"
)

// Deps wires every external resource a tool handler might touch. Fields are
// individually optional; a nil/empty one degrades its tool rather than
// panicking (e.g. a nil SearchTable degrades semantic_search to a keyword
// scan, per the missing-embeddings degrade rule).
type Deps struct {
	KnowledgeDir string // root scanned by search_knowledge's keyword search
	SkillsDir    string // root scanned by list_skills/get_skill
	ProtocolsDir string // get_protocol's document root
	EurekasDir   string // get_eureka's document root
	TruthsDir    string // get_truth's document root
	InboxDir     string // synapse/inbox, command files for sibling processes

	SearchTable     *search.Table
	HandshakeEngine *handshake.Engine

	// ResponseCache, when set, intercepts semantic_search and
	// search_knowledge ahead of embedding and fusion: a query whose
	// embedding lands within ResponseCacheThreshold of a prior one returns
	// the stored answer directly. Nil disables it entirely (the default).
	ResponseCache *store.ResponseCache

	// Metrics, when set, records response-cache hit/miss counters and is
	// shared with the Request Gate for its own query/rejection counters.
	// Nil (the default) disables instrumentation entirely.
	Metrics *metrics.Registry

	StartedAt time.Time
}

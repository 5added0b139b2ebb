// Package catalog holds the static model and client tables used to resolve
// a connecting agent's self-reported strings into canonical specs.
package catalog

// ModelSpec describes a known model's capabilities.
type ModelSpec struct {
	ID                       string
	Name                     string
	Vendor                   string
	ContextWindow            int
	SupportsTools            bool
	SupportsVision           bool
	SupportsStructuredOutput bool
	// RecommendedSkills seeds layer 1 of the Handshake Engine's skill
	// ranking: every id here is scored highest regardless of keyword match.
	RecommendedSkills []string
	Aliases           []string
}

// ContextManagement describes how a client manages its own context window.
type ContextManagement string

const (
	ContextAutoCompact    ContextManagement = "auto-compact"
	ContextDynamicPruning ContextManagement = "dynamic-pruning"
	ContextManual         ContextManagement = "manual"
	ContextNone           ContextManagement = "none"
)

// ClientSpec describes a known MCP client's capabilities.
type ClientSpec struct {
	ID                 string
	Name               string
	Transports         []string
	HasHooks           bool
	HasMemory          bool
	HasBackgroundAgents bool
	MaxParallelAgents  int
	ContextManagement  ContextManagement
	MaxContext         int
	Tips               []string
	Aliases            []string
}

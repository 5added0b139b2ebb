// Package handshake implements the agent onboarding pipeline: resolving a
// connecting agent's profile, ranking tools/skills/chunks against its stated
// goal, composing guardrails, and rendering a budget-aware Markdown config.
package handshake

import (
	"github.com/midos-mcp/midos-mcp/internal/profile"
)

// ToolDescriptor is the subset of a registered MCP tool's metadata the
// ranking pass needs. The full tool table lives in the dispatcher; this
// package only ever sees descriptors, never handlers, to avoid an import
// cycle with the dispatcher package.
type ToolDescriptor struct {
	Name              string
	Description       string
	Tags              []string
	Tier              string
	ExcludeFromOutput bool
}

// SkillDescriptor is one entry in the on-disk skill inventory.
type SkillDescriptor struct {
	ID   string
	Path string // absolute path to the skill file or directory
}

// RankedTool is a tool carrying its computed relevance score.
type RankedTool struct {
	Tool  ToolDescriptor
	Score int
}

// RankedSkill is a skill carrying its computed relevance score.
type RankedSkill struct {
	ID    string
	Score int
}

// RankedChunk is a retrieved knowledge chunk carrying its relevance score.
type RankedChunk struct {
	Text   string
	Source string
	Score  float64
}

// Request is everything the engine needs to personalize one handshake.
type Request struct {
	Profile        profile.ResolvedProfile
	Tools          []ToolDescriptor
	AllowedTools   []string // optional per-client allowlist; "*" wildcard, empty = unrestricted
	DeniedTools    []string // optional per-client denylist, applied after the allowlist
	RequestedTier  string   // caller's resolved gate tier, for tier-specific guardrails
}

// Result is the outcome of one handshake: the rendered Markdown plus the
// raw ranked pieces, for callers that want the structured form too.
type Result struct {
	Markdown   string
	Tools      []RankedTool
	Skills     []RankedSkill
	Chunks     []RankedChunk
	Guardrails []string
	Tips       []string
}

// genericTestPhrases are project goals that signal a smoke-test or demo
// handshake rather than a real project, per the chunk-ranking short-circuit.
var genericTestPhrases = map[string]struct{}{
	"test": {}, "testing": {}, "hello": {}, "demo": {}, "example": {}, "prueba": {},
}

// seedSkills is the fallback ordering used when no skill scores above zero.
var seedSkills = []string{"code-review", "test-writer", "deep-research", "debugging"}

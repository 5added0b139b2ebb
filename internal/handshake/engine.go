package handshake

import "context"

// Engine runs the full handshake pipeline: profile resolution is assumed
// already done by the caller (internal/profile.Resolve), this type owns
// ranking, guardrails, suggestions, rendering, and the compatibility log.
type Engine struct {
	Skills    []SkillDescriptor
	Searcher  ChunkSearcher
	ChunksDir string
	LogPath   string
}

// NewEngine constructs an Engine over a skill inventory, an optional chunk
// searcher (nil disables Vector Store lookups, falling back to the
// filesystem keyword scan), and the log path for compatibility records.
func NewEngine(skills []SkillDescriptor, searcher ChunkSearcher, chunksDir, logPath string) *Engine {
	return &Engine{Skills: skills, Searcher: searcher, ChunksDir: chunksDir, LogPath: logPath}
}

// Handshake runs the full §4.7 pipeline against an already-resolved profile
// and tool table, returning the rendered Markdown plus the ranked pieces.
func (e *Engine) Handshake(ctx context.Context, req Request) Result {
	tools := rankTools(req)
	skills := rankSkills(req, e.Skills)
	chunks := rankChunks(ctx, req, e.Searcher, e.ChunksDir)
	guardrails := buildGuardrails(req)
	tips := buildSuggestions(req, skills)

	result := Result{
		Tools:      tools,
		Skills:     skills,
		Chunks:     chunks,
		Guardrails: guardrails,
		Tips:       tips,
	}
	result.Markdown = renderMarkdown(req, tools, skills, chunks, guardrails, tips)

	logHandshake(e.LogPath, req, result)

	return result
}

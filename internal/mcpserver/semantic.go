package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/midos-mcp/midos-mcp/internal/search"
)

const semanticSearchTopK = 5

// handleSemanticSearch implements semantic_search: a Vector Store hybrid
// search, degrading to the same filesystem keyword scan search_knowledge
// uses when no table is wired or the embedding call itself fails. A
// ResponseCache, if wired, short-circuits the whole pipeline on a
// near-duplicate query.
func handleSemanticSearch(deps *Deps) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return "", invalidParamsError("query is required")
		}

		queryVector, cacheable := cacheQueryVector(ctx, deps, query)
		if cacheable {
			if cached, _, ok := deps.ResponseCache.Get(ctx, queryVector); ok {
				deps.Metrics.RecordCacheHit()
				return cached, nil
			}
			deps.Metrics.RecordCacheMiss()
		}

		topK := semanticSearchTopK
		if l, ok := args["limit"].(float64); ok && l > 0 {
			topK = int(l)
		}

		if deps.SearchTable != nil {
			results, err := deps.SearchTable.Search(ctx, query, topK, search.ModeHybrid, true, search.DefaultAlpha)
			if err == nil {
				rendered := renderSemanticResults(results, false)
				if cacheable {
					_ = deps.ResponseCache.Put(ctx, query, queryVector, rendered, "hybrid")
				}
				return rendered, nil
			}
		}

		hits := keywordSearch(deps.KnowledgeDir, query, topK)
		return renderKeywordDegrade(hits), nil
	}
}

// cacheQueryVector embeds query for a ResponseCache lookup, returning
// ok=false when either the cache or an embedder isn't wired.
func cacheQueryVector(ctx context.Context, deps *Deps, query string) ([]float32, bool) {
	if deps.ResponseCache == nil || deps.SearchTable == nil {
		return nil, false
	}
	vec, err := deps.SearchTable.EmbedQuery(ctx, query)
	if err != nil {
		return nil, false
	}
	return vec, true
}

func renderSemanticResults(results []*search.Result, degraded bool) string {
	var b strings.Builder
	if degraded {
		b.WriteString("[degraded: keyword-only] ")
	}
	fmt.Fprintf(&b, "%d result(s):\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (score %.3f, mode %s)\n  %s\n", r.Source, r.Score, r.Mode, firstLine(r.Text))
	}
	return b.String()
}

func renderKeywordDegrade(hits []searchHit) string {
	var b strings.Builder
	b.WriteString("[degraded: keyword-only] ")
	fmt.Fprintf(&b, "%d result(s):\n\n", len(hits))
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s (score %d)\n  %s\n", h.Source, h.Score, h.Snippet)
	}
	return b.String()
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	if len(text) > 200 {
		return text[:200] + "…"
	}
	return text
}

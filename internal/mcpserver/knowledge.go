package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	snippetRadius          = 120
	maxKeywordSearchHits    = 10
	minMeaningfulKeywordLen = 3
)

var safeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// keywordSearch walks root for files containing any word of query, scoring
// by hit count and returning a snippet around the first match. Grounded on
// the same filesystem fallback idiom rank_chunks.go uses for handshake
// chunk ranking.
func keywordSearch(root, query string, limit int) []searchHit {
	words := meaningfulWords(query)
	if root == "" || len(words) == 0 {
		return nil
	}

	var hits []searchHit
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		content := string(data)
		lower := strings.ToLower(content)

		count := 0
		firstIdx := -1
		for _, w := range words {
			if idx := strings.Index(lower, w); idx >= 0 {
				count++
				if firstIdx == -1 || idx < firstIdx {
					firstIdx = idx
				}
			}
		}
		if count == 0 {
			return nil
		}

		hits = append(hits, searchHit{
			Source:  path,
			Score:   count,
			Snippet: snippetAround(content, firstIdx, snippetRadius),
		})
		return nil
	})

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Source < hits[j].Source
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

type searchHit struct {
	Source  string `json:"source"`
	Score   int    `json:"score"`
	Snippet string `json:"snippet"`
}

func meaningfulWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= minMeaningfulKeywordLen {
			words = append(words, w)
		}
	}
	return words
}

func snippetAround(content string, idx, radius int) string {
	if idx < 0 {
		if len(content) > radius*2 {
			return content[:radius*2] + "…"
		}
		return content
	}
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + radius
	if end > len(content) {
		end = len(content)
	}
	snippet := content[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(content) {
		snippet = snippet + "…"
	}
	return strings.TrimSpace(snippet)
}

// handleSearchKnowledge implements search_knowledge: a filesystem keyword
// search with snippet extraction, front-ended by the same ResponseCache
// semantic_search uses when one is wired.
func handleSearchKnowledge(deps *Deps) ToolHandler {
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

		limit := maxKeywordSearchHits
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}
		hits := keywordSearch(deps.KnowledgeDir, query, limit)
		if len(hits) == 0 {
			return "No matches for \"" + query + "\".", nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d result(s) for %q:\n\n", len(hits), query)
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s (score %d)\n  %s\n", h.Source, h.Score, h.Snippet)
		}
		rendered := b.String()
		if cacheable {
			_ = deps.ResponseCache.Put(ctx, query, queryVector, rendered, "keyword")
		}
		return rendered, nil
	}
}

// resolveSafeName validates name against the MCP resource name pattern and
// joins it under root, refusing to resolve outside root even via a symlink.
func resolveSafeName(root, name, ext string) (string, error) {
	if !safeNamePattern.MatchString(name) {
		return "", errNotFound
	}
	candidate := filepath.Join(root, name+ext)
	resolvedRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errNotFound
	}
	resolved, err := filepath.Abs(candidate)
	if err != nil {
		return "", errNotFound
	}
	if r, err := filepath.EvalSymlinks(resolvedRoot); err == nil {
		resolvedRoot = r
	}
	if r, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = r
	}
	if resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator)) {
		return "", errNotFound
	}
	return resolved, nil
}

// findCaseInsensitive looks up name inside dir, tolerating any case and an
// optional ".md" extension, the canonical-name fallback get_protocol,
// get_eureka, and get_truth all share.
func findCaseInsensitive(dir, name string) (string, error) {
	if !safeNamePattern.MatchString(name) {
		return "", errNotFound
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errNotFound
	}
	target := strings.ToLower(name)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.ToLower(stem) == target {
			return filepath.Join(dir, base), nil
		}
	}
	return "", errNotFound
}

// truncateForAnonymous truncates text to limit runes at a safe (rune)
// boundary and appends an upgrade notice, per the unauthenticated-caller
// rule shared by get_skill and the skill resource endpoint.
func truncateForAnonymous(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	notice := "\n\n[Full content available with an API key. Generate one with 'midos-mcp keys generate' " +
		"and see the pricing page for tier details.]"
	return string(runes[:limit]) + "…" + notice
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

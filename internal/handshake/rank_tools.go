package handshake

import (
	"sort"
	"strings"
)

// coreTools get a fixed bonus regardless of keyword match, since they are
// useful to virtually every agent.
var coreTools = map[string]struct{}{
	"search_knowledge": {}, "semantic_search": {}, "list_skills": {},
}

// rankTools scores the registered tool list against the agent's stated
// goal/stack, honoring an optional per-client allow/deny list.
func rankTools(req Request) []RankedTool {
	keywords := keywordSet(req.Profile.Raw.ProjectGoal, req.Profile.Raw.Languages, req.Profile.Raw.Frameworks)

	var ranked []RankedTool
	for _, tool := range req.Tools {
		if tool.ExcludeFromOutput {
			continue
		}
		if !toolAllowed(tool.Name, req.AllowedTools, req.DeniedTools) {
			continue
		}

		score := keywordOverlap(keywords, tool.Description, tool.Tags)
		if _, core := coreTools[tool.Name]; core {
			score += 3
		}
		ranked = append(ranked, RankedTool{Tool: tool, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// toolAllowed applies the allowlist (with "*" wildcard) then the denylist.
// An empty allowlist means unrestricted.
func toolAllowed(name string, allow, deny []string) bool {
	if len(allow) > 0 {
		permitted := false
		for _, a := range allow {
			if a == "*" || strings.EqualFold(a, name) {
				permitted = true
				break
			}
		}
		if !permitted {
			return false
		}
	}
	for _, d := range deny {
		if strings.EqualFold(d, name) {
			return false
		}
	}
	return true
}

// keywordSet lowercases and flattens a goal string plus stack hints into a
// deduplicated set of single words.
func keywordSet(goal string, stacks ...[]string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(goal)) {
		set[w] = struct{}{}
	}
	for _, stack := range stacks {
		for _, s := range stack {
			set[strings.ToLower(s)] = struct{}{}
		}
	}
	return set
}

// keywordOverlap counts how many keywords appear in haystack's description
// or tags.
func keywordOverlap(keywords map[string]struct{}, description string, tags []string) int {
	haystack := strings.ToLower(description)
	for _, tag := range tags {
		haystack += " " + strings.ToLower(tag)
	}

	count := 0
	for kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			count++
		}
	}
	return count
}

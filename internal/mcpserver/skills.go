package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	skillAnonymousCharLimit = 400
	skillReadmeName         = "README.md"
)

// listSkillIDs enumerates the skill inventory: one entry per file or
// directory directly under root.
func listSkillIDs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids
}

func readSkillBody(root, id string) (string, error) {
	path, err := resolveSafeName(root, id, "")
	if err != nil {
		return "", err
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if exact, exactErr := resolveSafeName(root, id, ".md"); exactErr == nil {
			if data, readErr := os.ReadFile(exact); readErr == nil {
				return string(data), nil
			}
		}
		return "", errNotFound
	}
	if info.IsDir() {
		path = filepath.Join(path, skillReadmeName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errNotFound
	}
	return string(data), nil
}

// handleListSkills implements list_skills: enumerate the skill inventory,
// optionally scored against a "stack" argument (languages/frameworks the
// caller mentions), highest score first.
func handleListSkills(deps *Deps) ToolHandler {
	return func(_ context.Context, args map[string]any) (string, error) {
		ids := listSkillIDs(deps.SkillsDir)

		var b strings.Builder
		fmt.Fprintf(&b, "Available skills (%d):\n\n", len(ids))

		stack := strings.Join(stringsArg(args, "stack"), " ")
		if strings.TrimSpace(stack) == "" {
			for _, id := range ids {
				fmt.Fprintf(&b, "- %s\n", id)
			}
			return b.String(), nil
		}

		terms := meaningfulWords(stack)
		type scored struct {
			id    string
			score int
		}
		ranked := make([]scored, 0, len(ids))
		for _, id := range ids {
			body, _ := readSkillBody(deps.SkillsDir, id)
			haystack := strings.ToLower(id + "\n" + body)
			hits := 0
			for _, t := range terms {
				if strings.Contains(haystack, t) {
					hits++
				}
			}
			ranked = append(ranked, scored{id: id, score: hits})
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].id < ranked[j].id
		})
		for _, r := range ranked {
			fmt.Fprintf(&b, "- %s (match score %d)\n", r.id, r.score)
		}
		return b.String(), nil
	}
}

// handleGetSkill implements get_skill: return a skill's content, truncated
// for unauthenticated callers.
func handleGetSkill(deps *Deps) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		name, _ := args["name"].(string)
		if strings.TrimSpace(name) == "" {
			return "", invalidParamsError("name is required")
		}
		body, err := readSkillBody(deps.SkillsDir, name)
		if err != nil {
			return "", err
		}
		if !isAuthenticated(ctx) {
			return truncateForAnonymous(body, skillAnonymousCharLimit), nil
		}
		return body, nil
	}
}

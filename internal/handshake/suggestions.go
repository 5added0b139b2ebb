package handshake

import "strings"

// stackSkillHints maps a known-stack token appearing in the agent's
// languages/frameworks to a skill worth proactively surfacing.
var stackSkillHints = map[string]string{
	"go":         "code-review",
	"golang":     "code-review",
	"python":     "test-writer",
	"typescript": "test-writer",
	"react":      "test-writer",
}

// buildSuggestions generates proactive hints from detected gaps: missing
// client capabilities, a small context window, a recognized stack without
// its matching skill already ranked, an unresolved model, or a non-primary
// CLI that could benefit from an upsell nudge.
func buildSuggestions(req Request, rankedSkills []RankedSkill) []string {
	var tips []string

	if req.Profile.ClientResolved && !req.Profile.Client.HasHooks {
		tips = append(tips, "Consider a client with hook support for enforcing guardrails automatically.")
	}

	if req.Profile.TierLabel == "small" {
		tips = append(tips, "Context window is small; ask for summaries instead of full file dumps where possible.")
	}

	already := map[string]struct{}{}
	for _, s := range rankedSkills {
		already[s.ID] = struct{}{}
	}
	for _, lang := range append(append([]string{}, req.Profile.Raw.Languages...), req.Profile.Raw.Frameworks...) {
		if skill, ok := stackSkillHints[strings.ToLower(lang)]; ok {
			if _, have := already[skill]; !have {
				tips = append(tips, "Detected "+lang+" in your stack; the "+skill+" skill is recommended but wasn't ranked this time, check list_skills.")
			}
		}
	}

	if req.Profile.Raw.Model != "" && !req.Profile.ModelResolved {
		tips = append(tips, "Model '"+req.Profile.Raw.Model+"' wasn't recognized; capability-specific guardrails couldn't be applied.")
	}

	if req.Profile.ClientResolved && req.Profile.Client.ID != "claude-code" {
		tips = append(tips, "Full hook and background-agent support is only available in claude-code; some guardrails above are conservative defaults.")
	}

	return tips
}

package handshake

import (
	"fmt"
	"strings"
)

const previewLength = 200

// tierBudget bounds how many ranked tools/skills/chunks/guardrails/tips are
// rendered for a given context-size tier label. A negative bound means
// unrestricted.
type tierBudget struct {
	tools, skills, chunks, guardrails, tips int
}

var tierBudgets = map[string]tierBudget{
	"small":  {tools: 3, skills: 2, chunks: 1, guardrails: 3, tips: 2},
	"medium": {tools: 5, skills: 5, chunks: 2, guardrails: -1, tips: 5},
	"large":  {tools: -1, skills: -1, chunks: -1, guardrails: -1, tips: -1},
}

// renderMarkdown builds the final onboarding document, truncating each
// section to the budget implied by the profile's tier label.
func renderMarkdown(req Request, tools []RankedTool, skills []RankedSkill, chunks []RankedChunk, guardrails, tips []string) string {
	budget, ok := tierBudgets[string(req.Profile.TierLabel)]
	if !ok {
		budget = tierBudgets["medium"]
	}

	tools = capTools(tools, budget.tools)
	skills = capSkills(skills, budget.skills)
	chunks = capChunks(chunks, budget.chunks)
	guardrails = capStrings(guardrails, budget.guardrails)
	tips = capStrings(tips, budget.tips)

	var b strings.Builder

	b.WriteString("# MidOS Agent Handshake\n\n")

	b.WriteString("## Getting Started (3 steps)\n\n")
	b.WriteString("1. Call `search_knowledge` before writing anything new; check for existing answers.\n")
	b.WriteString("2. Run `list_skills` to see the skills ranked for this session below.\n")
	b.WriteString("3. Read the guardrails section before calling any premium tool.\n\n")

	b.WriteString("## Top Tools\n\n")
	if len(tools) == 0 {
		b.WriteString("_(no tools matched this profile)_\n\n")
	} else {
		b.WriteString("| Tool | Score |\n|---|---|\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "| `%s` | %d |\n", t.Tool.Name, t.Score)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommended Skills\n\n")
	if len(skills) == 0 {
		b.WriteString("_(none ranked)_\n\n")
	} else {
		for _, s := range skills {
			fmt.Fprintf(&b, "- `%s` (score %d)\n", s.ID, s.Score)
		}
		b.WriteString("\n")
	}

	if len(chunks) > 0 {
		b.WriteString("## Relevant Knowledge\n\n")
		for _, c := range chunks {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", c.Source, truncatePreview(c.Text))
		}
	}

	b.WriteString("## Guardrails\n\n")
	for _, g := range guardrails {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	b.WriteString("\n")

	if len(tips) > 0 {
		b.WriteString("## Tips\n\n")
		for _, tip := range tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func truncatePreview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= previewLength {
		return string(runes)
	}
	return string(runes[:previewLength]) + "…"
}

func capTools(items []RankedTool, n int) []RankedTool {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

func capSkills(items []RankedSkill, n int) []RankedSkill {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

func capChunks(items []RankedChunk, n int) []RankedChunk {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

func capStrings(items []string, n int) []string {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

package handshake

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

const (
	skillLayer1Score        = 10
	skillKeywordWeight      = 2
	skillCompatWeight       = 3
	maxRankedSkills         = 15
	compatHeadingNeedle     = "compatible with"
	skillReadmeFallbackName = "README.md"
)

// rankSkills layers the model's recommended skills, a compatibility-aware
// keyword scan of every known skill, and a plain id match against the
// project goal, deduplicating by id and keeping each skill's best score.
func rankSkills(req Request, skills []SkillDescriptor) []RankedSkill {
	scores := map[string]int{}

	for _, id := range req.Profile.Model.RecommendedSkills {
		bumpMax(scores, id, skillLayer1Score)
	}

	goalWords := strings.Fields(strings.ToLower(req.Profile.Raw.ProjectGoal))
	languages := lowerAll(req.Profile.Raw.Languages)
	frameworks := lowerAll(req.Profile.Raw.Frameworks)

	for _, skill := range skills {
		content := readSkillContent(skill.Path)
		haystack := strings.ToLower(skill.ID + "\n" + content)

		hits := 0
		for _, w := range goalWords {
			if w != "" && strings.Contains(haystack, w) {
				hits++
			}
		}

		langHit := containsAny(haystack, languages)
		fwHit := containsAny(haystack, frameworks)

		compat := compatDescriptor(content)
		if compat != "" {
			compatLower := strings.ToLower(compat)
			langHit = langHit || containsAny(compatLower, languages)
			fwHit = fwHit || containsAny(compatLower, frameworks)
		}

		score := skillKeywordWeight * hits
		if langHit {
			score += skillCompatWeight
		}
		if fwHit {
			score += skillCompatWeight
		}
		if score > 0 {
			bumpMax(scores, skill.ID, score)
		}
	}

	for _, skill := range skills {
		idLower := strings.ToLower(skill.ID)
		hits := 0
		for _, w := range goalWords {
			if w != "" && strings.Contains(idLower, w) {
				hits++
			}
		}
		if hits > 0 {
			bumpMax(scores, skill.ID, hits)
		}
	}

	ranked := make([]RankedSkill, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, RankedSkill{ID: id, Score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) == 0 {
		ranked = make([]RankedSkill, 0, len(seedSkills))
		for _, id := range seedSkills {
			ranked = append(ranked, RankedSkill{ID: id, Score: 0})
		}
	}

	if len(ranked) > maxRankedSkills {
		ranked = ranked[:maxRankedSkills]
	}
	return ranked
}

func bumpMax(scores map[string]int, id string, score int) {
	if existing, ok := scores[id]; !ok || score > existing {
		scores[id] = score
	}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// readSkillContent reads a skill file directly, or its README.md when the
// path is a directory. Missing or unreadable skills contribute no content
// rather than failing the whole ranking pass.
func readSkillContent(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		path = filepath.Join(path, skillReadmeFallbackName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// compatDescriptor extracts the body of a "Compatible With" heading section
// from a skill's Markdown content, if present.
func compatDescriptor(content string) string {
	if content == "" {
		return ""
	}

	src := []byte(content)
	reader := gmtext.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)

	var inSection bool
	var buf bytes.Buffer

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := headingText(node, src)
			inSection = strings.Contains(strings.ToLower(title), compatHeadingNeedle)
		default:
			if inSection {
				if textNode, ok := n.(*ast.Text); ok {
					buf.Write(textNode.Segment.Value(src))
					buf.WriteString(" ")
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	for child := h.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(src))
		}
	}
	return buf.String()
}

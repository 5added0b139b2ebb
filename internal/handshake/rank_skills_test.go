package handshake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midos-mcp/midos-mcp/internal/catalog"
	"github.com/midos-mcp/midos-mcp/internal/profile"
)

func writeSkillFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRankSkills_RecommendedSkillsGetLayer1Bonus(t *testing.T) {
	req := Request{
		Profile: profile.ResolvedProfile{
			Model:         catalog.ModelSpec{RecommendedSkills: []string{"deep-research"}},
			ModelResolved: true,
		},
	}
	ranked := rankSkills(req, nil)
	assert.Equal(t, "deep-research", ranked[0].ID)
	assert.Equal(t, skillLayer1Score, ranked[0].Score)
}

func TestRankSkills_CompatDescriptorBoostsLanguageMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, "go-linting", "# Go Linting\n\n## Compatible With\n\ngo, golang\n")

	req := Request{
		Profile: profile.ResolvedProfile{Raw: profile.AgentProfile{Languages: []string{"go"}}},
	}
	ranked := rankSkills(req, []SkillDescriptor{{ID: "go-linting", Path: path}})
	require.NotEmpty(t, ranked)
	assert.Equal(t, "go-linting", ranked[0].ID)
	assert.GreaterOrEqual(t, ranked[0].Score, skillCompatWeight)
}

func TestRankSkills_FallsBackToSeedListWhenNothingScores(t *testing.T) {
	req := Request{}
	ranked := rankSkills(req, nil)
	assert.Equal(t, seedSkills, idsOf(ranked))
}

func TestRankSkills_DeduplicatesByIDKeepingMaxScore(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, "deep-research", "matches nothing special")

	req := Request{
		Profile: profile.ResolvedProfile{
			Model:         catalog.ModelSpec{RecommendedSkills: []string{"deep-research"}},
			ModelResolved: true,
			Raw:           profile.AgentProfile{Languages: []string{"go"}},
		},
	}
	ranked := rankSkills(req, []SkillDescriptor{{ID: "deep-research", Path: path}})

	count := 0
	for _, r := range ranked {
		if r.ID == "deep-research" {
			count++
			assert.Equal(t, skillLayer1Score, r.Score)
		}
	}
	assert.Equal(t, 1, count)
}

func TestRankSkills_CapsAtFifteen(t *testing.T) {
	var descriptors []SkillDescriptor
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := "skill-" + string(rune('a'+i))
		path := writeSkillFile(t, dir, name, "## Compatible With\n\ngo\n")
		descriptors = append(descriptors, SkillDescriptor{ID: name, Path: path})
	}

	req := Request{Profile: profile.ResolvedProfile{Raw: profile.AgentProfile{Languages: []string{"go"}}}}
	ranked := rankSkills(req, descriptors)
	assert.LessOrEqual(t, len(ranked), maxRankedSkills)
}

func idsOf(ranked []RankedSkill) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	return ids
}

package handshake

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/midos-mcp/midos-mcp/internal/search"
)

const (
	chunkSearchTopK      = 5
	chunkScoreFloor      = 0.25
	chunkMinMeaningfulHits = 2
	minMeaningfulWordLen = 3
)

// ChunkSearcher is the narrow slice of internal/search.Table this package
// needs, so tests can fake it without standing up a full table.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, topK int, mode search.Mode, rerank bool, alpha float64) ([]*search.Result, error)
}

// rankChunks short-circuits to empty for generic test/demo goals, otherwise
// tries a hybrid Vector Store search and falls back to a local keyword scan
// over chunksDir when the store returns nothing above the score floor.
func rankChunks(ctx context.Context, req Request, searcher ChunkSearcher, chunksDir string) []RankedChunk {
	goal := strings.TrimSpace(req.Profile.Raw.ProjectGoal)
	if goal == "" {
		return nil
	}
	if _, generic := genericTestPhrases[strings.ToLower(goal)]; generic {
		return nil
	}

	if searcher != nil {
		results, err := searcher.Search(ctx, goal, chunkSearchTopK, search.ModeHybrid, false, search.DefaultAlpha)
		if err == nil {
			var ranked []RankedChunk
			for _, r := range results {
				if r.Score >= chunkScoreFloor {
					ranked = append(ranked, RankedChunk{Text: r.Text, Source: r.Source, Score: r.Score})
				}
			}
			if len(ranked) > 0 {
				return ranked
			}
		}
	}

	return keywordChunkFallback(goal, chunksDir)
}

// keywordChunkFallback scans chunksDir for files containing at least
// chunkMinMeaningfulHits meaningful (length >= minMeaningfulWordLen) words
// from the goal.
func keywordChunkFallback(goal, chunksDir string) []RankedChunk {
	if chunksDir == "" {
		return nil
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(goal)) {
		if len(w) >= minMeaningfulWordLen {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var ranked []RankedChunk
	_ = filepath.WalkDir(chunksDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		content := strings.ToLower(string(data))

		hits := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				hits++
			}
		}
		if hits >= chunkMinMeaningfulHits {
			ranked = append(ranked, RankedChunk{
				Text:   string(data),
				Source: path,
				Score:  float64(hits) / float64(len(words)),
			})
		}
		return nil
	})

	return ranked
}

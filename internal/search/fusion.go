// Package search provides hybrid retrieval fusion, query expansion, and reranking
// on top of the vector and keyword indices in internal/store.
package search

import (
	"sort"

	"github.com/midos-mcp/midos-mcp/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// FusedResult represents a single result after alpha-weighted RRF fusion.
type FusedResult struct {
	DocID        string   // Document identity: first 200 chars of text
	RRFScore     float64  // Combined, normalized 0-1 RRF score
	BM25Score    float64  // Original BM25 score, preserved for tie-breaking
	BM25Rank     int      // Position in BM25 list (1-indexed, 0 if absent)
	VecScore     float64  // Original vector similarity score, preserved
	VecRank      int      // Position in vector list (1-indexed, 0 if absent)
	InBothLists  bool     // Document appeared in both ranked lists
	MatchedTerms []string // BM25 matched terms, for highlighting
}

// RRFFusion combines BM25 and vector search results using
// alpha-weighted Reciprocal Rank Fusion:
//
//	score(doc) = alpha/(vec_rank+K) + (1-alpha)/(fts_rank+K)
//
// Only the lists a document actually appears in contribute to its score;
// there is no penalty contribution for the list it's absent from.
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with a custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines BM25 and vector results using alpha-weighted RRF.
//
// Document identity is the first 200 characters of the chunk text (so the
// same underlying passage retrieved via two different doc IDs in each leg
// still fuses correctly). Results are sorted by:
// RRFScore (desc) -> InBothLists (true first) -> BM25Score (desc) -> DocID (asc).
func (f *RRFFusion) Fuse(bm25 []*store.BM25Result, vec []*store.VectorResult, alpha float64, textByID map[string]string) []*FusedResult {
	if len(bm25) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	docIDFor := func(id string) string {
		text := textByID[id]
		if len(text) > 200 {
			return text[:200]
		}
		if text != "" {
			return text
		}
		return id
	}

	scores := make(map[string]*FusedResult, len(bm25)+len(vec))

	for rank, r := range bm25 {
		docID := docIDFor(r.DocID)
		result := f.getOrCreate(scores, docID)
		result.BM25Score = r.Score
		result.BM25Rank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.RRFScore += (1 - alpha) / float64(f.K+rank+1)
	}

	for rank, r := range vec {
		docID := docIDFor(r.ID)
		result := f.getOrCreate(scores, docID)
		result.VecScore = float64(r.Score)
		result.VecRank = rank + 1
		result.RRFScore += alpha / float64(f.K+rank+1)

		if result.BM25Rank > 0 {
			result.InBothLists = true
		}
	}

	results := f.toSortedSlice(scores)
	f.normalize(results)
	return results
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{DocID: id}
	m[id] = r
	return r
}

func (f *RRFFusion) toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	return results
}

// compare implements deterministic comparison for sorting.
// Returns true if a should rank before b.
func (f *RRFFusion) compare(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}
	return a.DocID < b.DocID
}

// normalize scales all RRF scores to the 0-1 range using the top score as reference.
func (f *RRFFusion) normalize(results []*FusedResult) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].RRFScore
	if maxScore == 0 {
		return
	}
	for _, r := range results {
		r.RRFScore = r.RRFScore / maxScore
	}
}

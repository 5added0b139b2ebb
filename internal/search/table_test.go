package search

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midos-mcp/midos-mcp/internal/store"
)

// fakeChunkStore is an in-memory ChunkStore for table.go tests.
type fakeChunkStore struct {
	byID map[string]*store.Chunk
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{byID: make(map[string]*store.Chunk)}
}

func (f *fakeChunkStore) Add(_ context.Context, chunks []*store.Chunk) error {
	for _, c := range chunks {
		cp := *c
		f.byID[c.ID] = &cp
	}
	return nil
}

func (f *fakeChunkStore) Get(_ context.Context, id string) (*store.Chunk, error) {
	return f.byID[id], nil
}

func (f *fakeChunkStore) GetByIDs(_ context.Context, ids []string) ([]*store.Chunk, error) {
	var out []*store.Chunk
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) FindByPrefix(_ context.Context, prefix string) (*store.Chunk, error) {
	var ids []string
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := f.byID[id]
		if len(c.Text) >= len(prefix) && c.Text[:len(prefix)] == prefix {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeChunkStore) All(_ context.Context) ([]*store.Chunk, error) {
	var out []*store.Chunk
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChunkStore) Touch(_ context.Context, id string, lastAccessed int64, accessCount int) error {
	if c, ok := f.byID[id]; ok {
		c.LastAccessed = lastAccessed
		c.AccessCount = accessCount
	}
	return nil
}

func (f *fakeChunkStore) SetDecay(_ context.Context, id string, score float64) error {
	if c, ok := f.byID[id]; ok {
		c.DecayScore = score
	}
	return nil
}

func (f *fakeChunkStore) Count(_ context.Context) (int, error) {
	return len(f.byID), nil
}

func (f *fakeChunkStore) Close() error { return nil }

// fakeBM25 is an in-memory BM25Index stub: Search returns docs whose content
// contains the query, in insertion order.
type fakeBM25 struct {
	docs []*store.Document
}

func (f *fakeBM25) Index(_ context.Context, docs []*store.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeBM25) Search(_ context.Context, query string, limit int) ([]*store.BM25Result, error) {
	var out []*store.BM25Result
	for i, d := range f.docs {
		if containsFold(d.Content, query) {
			out = append(out, &store.BM25Result{DocID: d.ID, Score: float64(len(f.docs) - i)})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func (f *fakeBM25) Delete(_ context.Context, docIDs []string) error { return nil }
func (f *fakeBM25) AllIDs() ([]string, error)                      { return nil, nil }
func (f *fakeBM25) Stats() *store.IndexStats                       { return &store.IndexStats{} }
func (f *fakeBM25) Save(path string) error                         { return nil }
func (f *fakeBM25) Load(path string) error                         { return nil }
func (f *fakeBM25) Close() error                                   { return nil }

// fakeVectorStore returns whatever vectors were added, sorted by the trivial
// "distance" between the first components, for deterministic ANN-shaped tests.
type fakeVectorStore struct {
	ids  []string
	vecs [][]float32
}

func (f *fakeVectorStore) Add(_ context.Context, ids []string, vectors [][]float32) error {
	f.ids = append(f.ids, ids...)
	f.vecs = append(f.vecs, vectors...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, query []float32, k int) ([]*store.VectorResult, error) {
	type scored struct {
		id   string
		dist float32
	}
	var all []scored
	for i, v := range f.vecs {
		d := float32(0)
		for j := range v {
			diff := v[j] - query[j]
			d += diff * diff
		}
		all = append(all, scored{id: f.ids[i], dist: d})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > k {
		all = all[:k]
	}
	out := make([]*store.VectorResult, len(all))
	for i, s := range all {
		out[i] = &store.VectorResult{ID: s.id, Distance: s.dist, Score: 1.0 / (1.0 + s.dist)}
	}
	return out, nil
}

func (f *fakeVectorStore) Delete(_ context.Context, ids []string) error { return nil }
func (f *fakeVectorStore) AllIDs() []string                             { return f.ids }
func (f *fakeVectorStore) Contains(id string) bool                     { return false }
func (f *fakeVectorStore) Count() int                                  { return len(f.ids) }
func (f *fakeVectorStore) Save(path string) error                      { return nil }
func (f *fakeVectorStore) Load(path string) error                      { return nil }
func (f *fakeVectorStore) Close() error                                { return nil }

// fakeEmbedder returns a fixed vector per query text, looked up by exact match.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func newTestTable(t *testing.T) (*Table, *fakeChunkStore, *fakeBM25, *fakeVectorStore, *fakeEmbedder) {
	t.Helper()
	chunks := newFakeChunkStore()
	bm25 := &fakeBM25{}
	vec := &fakeVectorStore{}
	emb := &fakeEmbedder{vectors: make(map[string][]float32)}
	archivePath := filepath.Join(t.TempDir(), "archive.jsonl")
	return NewTable(chunks, bm25, vec, emb, archivePath), chunks, bm25, vec, emb
}

func TestTable_AddNormalizesSourceAndIndexesBothLegs(t *testing.T) {
	table, chunks, bm25, vec, _ := newTestTable(t)
	ctx := context.Background()

	err := table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "caching invalidation strategies", Source: `docs\caching.md`, Vector: []float32{1, 0}},
	})
	require.NoError(t, err)

	got, err := chunks.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "docs/caching.md", got.Source)
	assert.Len(t, bm25.docs, 1)
	assert.Len(t, vec.ids, 1)
}

func TestTable_SearchHybridFusesBothLegs(t *testing.T) {
	table, _, _, _, emb := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "redis cache eviction policy", Source: "a.md", Vector: []float32{1, 0}},
		{ID: "b", Text: "unrelated deployment pipeline notes", Source: "b.md", Vector: []float32{0, 1}},
	}))
	emb.vectors["cache"] = []float32{1, 0}

	results, err := table.Search(ctx, "cache", 5, ModeHybrid, false, DefaultAlpha)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a.md", results[0].Source)
	assert.Equal(t, ModeHybrid, results[0].Mode)
}

func TestTable_SearchVectorOnlyModeSkipsBM25(t *testing.T) {
	table, _, bm25, _, emb := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "vector only content", Source: "a.md", Vector: []float32{1, 0}},
	}))
	emb.vectors["query"] = []float32{1, 0}
	bm25.docs = nil // ensure BM25 leg would return nothing even if invoked

	results, err := table.Search(ctx, "query", 5, ModeVector, false, DefaultAlpha)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ModeVector, results[0].Mode)
}

func TestTable_SearchResultCacheServesSecondCallWithoutRequery(t *testing.T) {
	table, _, _, _, emb := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "caching deep dive", Source: "a.md", Vector: []float32{1, 0}},
	}))
	emb.vectors["cache"] = []float32{1, 0}

	first, err := table.Search(ctx, "cache", 5, ModeHybrid, false, DefaultAlpha)
	require.NoError(t, err)

	// Remove the embedding so a fresh query would fail to find anything by
	// vector; a cache hit should still return the original results.
	delete(emb.vectors, "cache")

	second, err := table.Search(ctx, "cache", 5, ModeHybrid, false, DefaultAlpha)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTable_SearchEmptyWhenNoChunks(t *testing.T) {
	table, _, _, _, _ := newTestTable(t)
	results, err := table.Search(context.Background(), "anything", 5, ModeHybrid, false, DefaultAlpha)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTable_GetDecayReportSortsAscending(t *testing.T) {
	table, _, _, _, _ := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "a", Source: "a.md", DecayScore: 0.9},
		{ID: "b", Text: "b", Source: "b.md", DecayScore: 0.1},
		{ID: "c", Text: "c", Source: "c.md", DecayScore: 0.5},
	}))

	report, err := table.GetDecayReport(ctx, 2)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "b", report[0].ID)
	assert.Equal(t, "c", report[1].ID)
}

func TestTable_RefreshChunkTouchesMatchByPrefix(t *testing.T) {
	table, chunks, _, _, _ := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "unique-prefix content body", Source: "a.md", AccessCount: 2},
	}))

	refreshed, err := table.RefreshChunk(ctx, "unique-prefix")
	require.NoError(t, err)
	assert.True(t, refreshed)

	got, err := chunks.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.AccessCount)
}

func TestTable_RefreshChunkNoMatchReturnsFalse(t *testing.T) {
	table, _, _, _, _ := newTestTable(t)
	refreshed, err := table.RefreshChunk(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, refreshed)
}

func TestTable_ArchiveChunkSetsSentinelAndAppendsLog(t *testing.T) {
	table, chunks, _, _, _ := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "archive-me body text", Source: "a.md"},
	}))

	archived, err := table.ArchiveChunk(ctx, "archive-me")
	require.NoError(t, err)
	assert.True(t, archived)

	got, err := chunks.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveSentinel, got.DecayScore)

	data, err := os.ReadFile(table.archivePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"a"`)
}

func TestTable_BatchRescoreDecaySkipsArchivedAndCountsStale(t *testing.T) {
	table, _, _, _, _ := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "fresh", Text: "fresh", Source: "a.md", Timestamp: 0, DecayScore: 1.0,
			Metadata: map[string]string{"base_quality": "1.0"}},
		{ID: "archived", Text: "archived", Source: "b.md", DecayScore: store.ArchiveSentinel},
	}))

	stats, err := table.BatchRescoreDecay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.AlreadyArchived)
}

func TestTable_CountReflectsAddedChunks(t *testing.T) {
	table, _, _, _, _ := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "a", Source: "a.md"},
		{ID: "b", Text: "b", Source: "b.md"},
	}))

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTable_SetRerankerIsAppliedWhenRequested(t *testing.T) {
	table, _, _, _, emb := newTestTable(t)
	ctx := context.Background()

	require.NoError(t, table.Add(ctx, []*store.Chunk{
		{ID: "a", Text: "rerank target one", Source: "a.md", Vector: []float32{1, 0}},
		{ID: "b", Text: "rerank target two", Source: "b.md", Vector: []float32{1, 0}},
	}))
	emb.vectors["target"] = []float32{1, 0}
	table.SetReranker(&reverseReranker{})

	results, err := table.Search(ctx, "target", 5, ModeHybrid, true, DefaultAlpha)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b.md", results[0].Source)
}

// reverseReranker reverses input order, to prove Table.Search actually
// threads through a custom Reranker when rerank=true.
type reverseReranker struct{}

func (r *reverseReranker) Rerank(_ context.Context, _ string, documents []string, _ int) ([]RerankResult, error) {
	out := make([]RerankResult, len(documents))
	for i, d := range documents {
		out[len(documents)-1-i] = RerankResult{Index: i, Score: float64(i), Document: d}
	}
	return out, nil
}

func (r *reverseReranker) Available(_ context.Context) bool { return true }
func (r *reverseReranker) Close() error                     { return nil }

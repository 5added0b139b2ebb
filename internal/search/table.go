package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/midos-mcp/midos-mcp/internal/embed"
	"github.com/midos-mcp/midos-mcp/internal/store"
)

// Mode selects which retrieval legs a search uses.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// Default search parameters.
const (
	DefaultAlpha          = 0.5
	DefaultTopKMultiplier = 3
	MaxRetrieveCap        = 30
	QueryResultCacheTTL   = 60 * time.Second
)

// Embedder is the subset of internal/embed's client the Table needs to embed
// queries. internal/embed.QueryCache satisfies this directly; it layers a
// bounded TTL cache over whatever embed.Embedder produces the vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = (*embed.QueryCache)(nil)

// Result is one ranked hit from a Table.Search call.
type Result struct {
	Text      string            `json:"text"`
	Source    string            `json:"source"`
	Score     float64           `json:"score"`
	Timestamp int64             `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Mode      Mode              `json:"search_mode"`
}

// RescoreStats summarizes a batch_rescore_decay run.
type RescoreStats struct {
	Total           int `json:"total"`
	NowStale        int `json:"now_stale"`
	AlreadyStale    int `json:"already_stale"`
	AlreadyArchived int `json:"already_archived"`
}

// Table is the Vector Store orchestration layer: chunk metadata, BM25
// keyword index, and HNSW vector index fused behind one search pipeline,
// with decay scoring and a short-lived query-result cache.
type Table struct {
	chunks store.ChunkStore
	bm25   store.BM25Index
	vector store.VectorStore
	embed  Embedder

	fusion *RRFFusion
	expand *QueryExpander

	rerankMu sync.RWMutex
	rerank   Reranker

	archivePath string

	resultCacheMu sync.Mutex
	resultCache   map[string]cachedResult
}

type cachedResult struct {
	results   []*Result
	expiresAt time.Time
}

// NewTable constructs a Table over already-opened stores.
func NewTable(chunks store.ChunkStore, bm25 store.BM25Index, vector store.VectorStore, embedder Embedder, archivePath string) *Table {
	return &Table{
		chunks:      chunks,
		bm25:        bm25,
		vector:      vector,
		embed:       embedder,
		fusion:      NewRRFFusion(),
		expand:      NewQueryExpander(),
		rerank:      &NoOpReranker{},
		archivePath: archivePath,
		resultCache: make(map[string]cachedResult),
	}
}

// SetReranker overrides the default no-op reranker, e.g. with a cross-encoder.
func (t *Table) SetReranker(r Reranker) {
	t.rerankMu.Lock()
	defer t.rerankMu.Unlock()
	t.rerank = r
}

// EmbedQuery exposes the Table's embedder directly, for callers (such as a
// semantic response cache) that need a query vector without running a full
// search.
func (t *Table) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if t.embed == nil {
		return nil, fmt.Errorf("search table has no embedder configured")
	}
	return t.embed.EmbedQuery(ctx, text)
}

// Add normalizes chunk sources to forward slashes and appends them to the
// chunk store, the BM25 index, and (if vectors are present) the ANN index.
func (t *Table) Add(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().Unix()
	docs := make([]*store.Document, 0, len(chunks))
	var vecIDs []string
	var vecs [][]float32

	for _, c := range chunks {
		c.Source = strings.ReplaceAll(filepath.ToSlash(c.Source), `\`, "/")
		if c.Timestamp == 0 {
			c.Timestamp = now
		}
		if c.LastAccessed == 0 {
			c.LastAccessed = now
		}
		if c.DecayScore == 0 {
			c.DecayScore = 1.0
		}
		if c.ID == "" {
			c.ID = contentID(c.Text)
		}
		docs = append(docs, &store.Document{ID: c.ID, Content: c.Text})
		if c.Vector != nil {
			vecIDs = append(vecIDs, c.ID)
			vecs = append(vecs, c.Vector)
		}
	}

	if err := t.chunks.Add(ctx, chunks); err != nil {
		return fmt.Errorf("failed to add chunks: %w", err)
	}
	if err := t.bm25.Index(ctx, docs); err != nil {
		return fmt.Errorf("failed to index chunks for keyword search: %w", err)
	}
	if len(vecIDs) > 0 {
		if err := t.vector.Add(ctx, vecIDs, vecs); err != nil {
			return fmt.Errorf("failed to add chunk vectors: %w", err)
		}
	}

	t.resultCacheMu.Lock()
	t.resultCache = make(map[string]cachedResult)
	t.resultCacheMu.Unlock()

	return nil
}

func contentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// Search executes the hybrid retrieval pipeline: cache check, optional query
// expansion + embed + ANN, BM25, alpha-weighted RRF fusion, optional rerank,
// top_k truncation.
func (t *Table) Search(ctx context.Context, query string, topK int, mode Mode, rerank bool, alpha float64) ([]*Result, error) {
	if topK <= 0 {
		topK = 10
	}
	if mode == "" {
		mode = ModeHybrid
	}
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	key := t.cacheKey(query, topK, mode, rerank, alpha)
	if cached, ok := t.getCached(key); ok {
		return cached, nil
	}

	retrieveK := topK * DefaultTopKMultiplier
	if retrieveK > MaxRetrieveCap {
		retrieveK = MaxRetrieveCap
	}

	expanded := t.expand.Expand(query)

	var vecResults []*store.VectorResult
	var bm25Results []*store.BM25Result

	if mode == ModeVector || mode == ModeHybrid {
		var err error
		vecResults, err = t.searchVector(ctx, expanded, retrieveK)
		if err != nil {
			slog.Error("vector_search_failed", slog.String("error", err.Error()))
			vecResults = nil
		}
	}

	if mode == ModeKeyword || mode == ModeHybrid {
		var err error
		bm25Results, err = t.bm25.Search(ctx, expanded, retrieveK)
		if err != nil {
			slog.Error("keyword_search_failed", slog.String("error", err.Error()))
			bm25Results = nil
		}
	}

	if len(vecResults) == 0 && len(bm25Results) == 0 {
		return []*Result{}, nil
	}

	ids := collectIDs(vecResults, bm25Results)
	chunksByID, err := t.loadChunksByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk text: %w", err)
	}
	textByID := make(map[string]string, len(chunksByID))
	for id, c := range chunksByID {
		textByID[id] = c.Text
	}

	var results []*Result
	switch mode {
	case ModeVector:
		results = fromVectorOnly(vecResults, chunksByID, mode)
	case ModeKeyword:
		results = fromKeywordOnly(bm25Results, chunksByID, mode)
	default:
		fused := t.fusion.Fuse(bm25Results, vecResults, alpha, textByID)
		results = fromFused(fused, chunksByID, mode)
	}

	if rerank {
		results = t.applyRerank(ctx, query, results)
	}

	if len(results) > topK {
		results = results[:topK]
	}

	t.setCached(key, results)
	return results, nil
}

func (t *Table) searchVector(ctx context.Context, query string, retrieveK int) ([]*store.VectorResult, error) {
	qvec, err := t.embed.EmbedQuery(ctx, query)
	if err != nil || qvec == nil {
		return nil, fmt.Errorf("query embedding unavailable: %w", err)
	}
	return t.vector.Search(ctx, qvec, retrieveK)
}

func collectIDs(vec []*store.VectorResult, bm25 []*store.BM25Result) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range vec {
		if _, ok := seen[r.ID]; !ok {
			seen[r.ID] = struct{}{}
			ids = append(ids, r.ID)
		}
	}
	for _, r := range bm25 {
		if _, ok := seen[r.DocID]; !ok {
			seen[r.DocID] = struct{}{}
			ids = append(ids, r.DocID)
		}
	}
	return ids
}

func (t *Table) loadChunksByID(ctx context.Context, ids []string) (map[string]*store.Chunk, error) {
	chunks, err := t.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		m[c.ID] = c
	}
	return m, nil
}

func fromVectorOnly(results []*store.VectorResult, chunksByID map[string]*store.Chunk, mode Mode) []*Result {
	out := make([]*Result, 0, len(results))
	for rank, r := range results {
		c := chunksByID[r.ID]
		if c == nil {
			continue
		}
		out = append(out, &Result{
			Text: c.Text, Source: c.Source, Timestamp: c.Timestamp, Metadata: c.Metadata,
			Score: 1.0 / float64(rank+1), Mode: mode,
		})
	}
	return out
}

func fromKeywordOnly(results []*store.BM25Result, chunksByID map[string]*store.Chunk, mode Mode) []*Result {
	out := make([]*Result, 0, len(results))
	for rank, r := range results {
		c := chunksByID[r.DocID]
		if c == nil {
			continue
		}
		out = append(out, &Result{
			Text: c.Text, Source: c.Source, Timestamp: c.Timestamp, Metadata: c.Metadata,
			Score: 1.0 / float64(rank+1), Mode: mode,
		})
	}
	return out
}

func fromFused(fused []*FusedResult, chunksByID map[string]*store.Chunk, mode Mode) []*Result {
	out := make([]*Result, 0, len(fused))
	for _, f := range fused {
		c := findChunkByDocID(chunksByID, f.DocID)
		if c == nil {
			continue
		}
		out = append(out, &Result{
			Text: c.Text, Source: c.Source, Timestamp: c.Timestamp, Metadata: c.Metadata,
			Score: f.RRFScore, Mode: mode,
		})
	}
	return out
}

// findChunkByDocID matches a fused result's doc ID (first 200 chars of text)
// back to its chunk.
func findChunkByDocID(chunksByID map[string]*store.Chunk, docID string) *store.Chunk {
	if c, ok := chunksByID[docID]; ok {
		return c
	}
	for _, c := range chunksByID {
		prefix := c.Text
		if len(prefix) > 200 {
			prefix = prefix[:200]
		}
		if prefix == docID {
			return c
		}
	}
	return nil
}

func (t *Table) applyRerank(ctx context.Context, query string, results []*Result) []*Result {
	t.rerankMu.RLock()
	reranker := t.rerank
	t.rerankMu.RUnlock()

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Text
	}

	ranked, err := reranker.Rerank(ctx, query, docs, 0)
	if err != nil {
		slog.Warn("rerank_failed", slog.String("error", err.Error()))
		return results
	}

	out := make([]*Result, 0, len(ranked))
	for _, rr := range ranked {
		if rr.Index < 0 || rr.Index >= len(results) {
			continue
		}
		r := *results[rr.Index]
		r.Score = rr.Score
		out = append(out, &r)
	}
	return out
}

// GetDecayReport returns up to limit chunks sorted ascending by decay score.
func (t *Table) GetDecayReport(ctx context.Context, limit int) ([]*store.Chunk, error) {
	all, err := t.chunks.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DecayScore < all[j].DecayScore })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// RefreshChunk marks the first chunk whose text starts with prefix fresh.
func (t *Table) RefreshChunk(ctx context.Context, prefix string) (bool, error) {
	c, err := t.chunks.FindByPrefix(ctx, prefix)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return true, t.chunks.Touch(ctx, c.ID, time.Now().Unix(), c.AccessCount+1)
}

// archiveRecord is one line of the archive log.
type archiveRecord struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ArchivedAt int64  `json:"archived_at"`
}

// ArchiveChunk sets the first chunk whose text starts with prefix to the
// archive sentinel and appends a record to the archive log.
func (t *Table) ArchiveChunk(ctx context.Context, prefix string) (bool, error) {
	c, err := t.chunks.FindByPrefix(ctx, prefix)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}

	if err := t.chunks.SetDecay(ctx, c.ID, store.ArchiveSentinel); err != nil {
		return false, err
	}

	if t.archivePath != "" {
		if err := t.appendArchiveRecord(archiveRecord{ID: c.ID, Source: c.Source, ArchivedAt: time.Now().Unix()}); err != nil {
			slog.Error("archive_log_append_failed", slog.String("error", err.Error()))
		}
	}

	return true, nil
}

func (t *Table) appendArchiveRecord(rec archiveRecord) error {
	if dir := filepath.Dir(t.archivePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(t.archivePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// BatchRescoreDecay recomputes every chunk's decay score (V1 formula) and
// rewrites the chunk store, counting chunks that fall below the stale
// threshold as a result.
func (t *Table) BatchRescoreDecay(ctx context.Context) (*RescoreStats, error) {
	all, err := t.chunks.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RescoreStats{Total: len(all)}
	now := time.Now().Unix()

	for _, c := range all {
		if store.IsArchived(c.DecayScore) {
			stats.AlreadyArchived++
			continue
		}
		wasStale := store.IsStale(c.DecayScore)
		score := store.Score(c, now, "v1", 0)
		if err := t.chunks.SetDecay(ctx, c.ID, score); err != nil {
			return nil, fmt.Errorf("failed to rescore chunk %s: %w", c.ID, err)
		}
		if store.IsStale(score) {
			if wasStale {
				stats.AlreadyStale++
			} else {
				stats.NowStale++
			}
		}
	}

	return stats, nil
}

// Count returns the number of chunks.
func (t *Table) Count(ctx context.Context) (int, error) {
	return t.chunks.Count(ctx)
}

func (t *Table) cacheKey(query string, topK int, mode Mode, rerank bool, alpha float64) string {
	return strings.Join([]string{
		query, fmt.Sprint(topK), string(mode), fmt.Sprint(rerank), fmt.Sprintf("%.4f", alpha),
	}, "\x00")
}

func (t *Table) getCached(key string) ([]*Result, bool) {
	t.resultCacheMu.Lock()
	defer t.resultCacheMu.Unlock()

	entry, ok := t.resultCache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.results, true
}

func (t *Table) setCached(key string, results []*Result) {
	t.resultCacheMu.Lock()
	defer t.resultCacheMu.Unlock()
	t.resultCache[key] = cachedResult{results: results, expiresAt: time.Now().Add(QueryResultCacheTTL)}
}

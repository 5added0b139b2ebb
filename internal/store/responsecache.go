package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ResponseCacheThreshold is the minimum cosine similarity a prior query must
// score for a response cache hit, matching the teacher lineage's semantic
// cache default.
const ResponseCacheThreshold = 0.95

// cachedResponse is the on-disk shape of one response cache entry.
type cachedResponse struct {
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Hits      int       `json:"hits"`
}

// ResponseCache is an optional cache of prior tool responses keyed by
// cosine similarity over the query embedding rather than an exact string
// match: a near-duplicate question returns the stored answer without
// re-running embedding, search, and fusion. Disabled unless constructed and
// wired in explicitly; a nil *ResponseCache is always a clean miss.
type ResponseCache struct {
	mu        sync.Mutex
	vectors   VectorStore
	responses map[string]cachedResponse
	dir       string
	threshold float32
	nextID    int
}

// NewResponseCache opens a response cache backed by an HNSW vector index at
// dir/semantic_cache.hnsw and a JSON sidecar of response payloads at
// dir/semantic_cache.json. An empty dir keeps the cache in memory only.
func NewResponseCache(dir string, dimensions int) (*ResponseCache, error) {
	vectors, err := NewHNSWStore(DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache vector store: %w", err)
	}

	c := &ResponseCache{
		vectors:   vectors,
		responses: make(map[string]cachedResponse),
		dir:       dir,
		threshold: ResponseCacheThreshold,
	}
	if dir != "" {
		if err := c.load(); err != nil {
			_ = vectors.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *ResponseCache) vectorPath() string { return filepath.Join(c.dir, "semantic_cache.hnsw") }
func (c *ResponseCache) metaPath() string   { return filepath.Join(c.dir, "semantic_cache.json") }

func (c *ResponseCache) load() error {
	if _, err := os.Stat(c.vectorPath()); err == nil {
		if err := c.vectors.Load(c.vectorPath()); err != nil {
			return fmt.Errorf("failed to load response cache vectors: %w", err)
		}
	}

	data, err := os.ReadFile(c.metaPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read response cache metadata: %w", err)
	}

	var responses map[string]cachedResponse
	if err := json.Unmarshal(data, &responses); err != nil {
		return fmt.Errorf("response cache metadata is corrupt: %w", err)
	}
	c.responses = responses

	maxID := 0
	for id := range responses {
		var n int
		if _, err := fmt.Sscanf(id, "r%d", &n); err == nil && n > maxID {
			maxID = n
		}
	}
	c.nextID = maxID + 1
	return nil
}

// Get returns the cached response for a query vector, if a prior entry
// scores at or above the similarity threshold, and records a hit against it.
func (c *ResponseCache) Get(ctx context.Context, queryVector []float32) (response string, similarity float32, ok bool) {
	if c == nil {
		return "", 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vectors.Count() == 0 {
		return "", 0, false
	}

	results, err := c.vectors.Search(ctx, queryVector, 1)
	if err != nil || len(results) == 0 {
		return "", 0, false
	}

	top := results[0]
	if top.Score < c.threshold {
		return "", 0, false
	}

	entry, found := c.responses[top.ID]
	if !found {
		return "", 0, false
	}
	entry.Hits++
	c.responses[top.ID] = entry
	return entry.Response, top.Score, true
}

// Put stores a response keyed by the query vector that produced it.
func (c *ResponseCache) Put(ctx context.Context, prompt string, queryVector []float32, response, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := fmt.Sprintf("r%d", c.nextID)
	c.nextID++

	if err := c.vectors.Add(ctx, []string{id}, [][]float32{queryVector}); err != nil {
		return fmt.Errorf("failed to index response cache vector: %w", err)
	}
	c.responses[id] = cachedResponse{
		Prompt:    prompt,
		Response:  response,
		Model:     model,
		CreatedAt: time.Now(),
	}
	return c.persist()
}

// Stats reports the number of entries currently cached.
func (c *ResponseCache) Stats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// Close releases the underlying vector store.
func (c *ResponseCache) Close() error {
	return c.vectors.Close()
}

func (c *ResponseCache) persist() error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create response cache directory: %w", err)
	}
	if err := c.vectors.Save(c.vectorPath()); err != nil {
		return fmt.Errorf("failed to save response cache vectors: %w", err)
	}

	data, err := json.Marshal(c.responses)
	if err != nil {
		return fmt.Errorf("failed to marshal response cache metadata: %w", err)
	}
	if err := os.WriteFile(c.metaPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write response cache metadata: %w", err)
	}
	return nil
}

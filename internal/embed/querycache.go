package embed

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Query-embedding cache tuning, per the embed_query operation.
const (
	QueryCacheCapacity = 100
	QueryCacheTTL      = 300 * time.Second
)

// QueryCache is a bounded, time-limited cache of query-text embeddings,
// separate from the unbounded fingerprint cache CachedEmbedder maintains for
// bulk ingestion. Eviction is LRU by least-recent-use, and entries expire
// after QueryCacheTTL regardless of use.
type QueryCache struct {
	inner Embedder
	cache *expirable.LRU[string, []float32]
}

// NewQueryCache wraps inner with the query-embedding cache.
func NewQueryCache(inner Embedder) *QueryCache {
	return &QueryCache{
		inner: inner,
		cache: expirable.NewLRU[string, []float32](QueryCacheCapacity, nil, QueryCacheTTL),
	}
}

// EmbedQuery returns the embedding for text, consulting the cache first.
// Callers are expected to have already applied query expansion to text.
func (q *QueryCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := q.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := q.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		q.cache.Add(text, vec)
	}
	return vec, nil
}

// Len reports the current number of live cache entries.
func (q *QueryCache) Len() int {
	return q.cache.Len()
}

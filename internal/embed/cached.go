package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// fingerprintLength is the number of hex characters kept from a text's
// content hash when used as a cache key.
const fingerprintLength = 16

// fingerprint returns a short, content-derived cache key for text.
func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// CachedEmbedder wraps an Embedder with a process-lifetime, unbounded cache
// keyed by content fingerprint, so repeated texts across calls never hit the
// provider twice. It never persists across restarts.
type CachedEmbedder struct {
	inner Embedder
	mu    sync.RWMutex
	cache map[string][]float32
}

// NewCachedEmbedder wraps inner with a fingerprint cache.
func NewCachedEmbedder(inner Embedder) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: make(map[string][]float32),
	}
}

// Get returns the cached embedding for text's fingerprint, if present,
// without computing it. Safe for concurrent use alongside Embed/EmbedBatch.
func (c *CachedEmbedder) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.cache[fingerprint(text)]
	return vec, ok
}

// Put stores vec under text's fingerprint. Safe for concurrent use alongside
// Embed/EmbedBatch/Get.
func (c *CachedEmbedder) Put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[fingerprint(text)] = vec
}

// Embed returns the cached embedding if present, otherwise computes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := fingerprint(text)

	c.mu.RLock()
	if vec, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return vec, nil
	}
	c.mu.RUnlock()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = vec
	c.mu.Unlock()
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts, order-preserving,
// consulting and populating the fingerprint cache for each text individually.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	c.mu.RLock()
	for i, text := range texts {
		if vec, ok := c.cache[fingerprint(text)]; ok {
			results[i] = vec
		} else {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}
	c.mu.RUnlock()

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	newEmbeddings, err := c.inner.EmbedBatch(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, idx := range uncachedIndices {
		results[idx] = newEmbeddings[j]
		if newEmbeddings[j] != nil {
			c.cache[fingerprint(texts[idx])] = newEmbeddings[j]
		}
	}
	c.mu.Unlock()

	return results, nil
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (c *CachedEmbedder) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Close releases resources and closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}

// Inner returns the underlying embedder.
func (c *CachedEmbedder) Inner() Embedder {
	return c.inner
}

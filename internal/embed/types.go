// Package embed provides batched, cached embedding of text via an external
// provider, plus a separate cache tuned for query-time embedding lookups.
package embed

import (
	"context"
	"math"
	"time"
)

// Batch and concurrency limits for the embed(texts[]) operation.
const (
	// BatchSize is the fixed partition size for uncached inputs.
	BatchSize = 50

	// MaxConcurrentBatches caps the number of batches submitted at once.
	MaxConcurrentBatches = 4

	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 30 * time.Second
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order-preserving.
	// A provider failure fails the whole call with an error; turning a
	// failed batch into nil slots is done one layer up, in BatchClient.Embed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

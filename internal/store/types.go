// Package store provides the retrieval layer: a chunk metadata store (SQLite),
// a BM25 keyword index, and an HNSW vector index, plus decay scoring over chunks.
package store

import (
	"context"
	"fmt"
)

// ArchiveSentinel is the decay score assigned to an archived chunk.
const ArchiveSentinel = -1.0

// StaleThreshold is the decay score below which a chunk is considered stale.
const StaleThreshold = 0.05

// Chunk is a retrievable unit of content: documentation, a skill description,
// or a validated finding, together with its embedding and decay bookkeeping.
type Chunk struct {
	ID           string            // content-derived identifier
	Text         string            // chunk body
	Vector       []float32         // embedding, length must equal the table's dimension D
	Source       string            // POSIX-normalized path-like origin
	Timestamp    int64             // creation, epoch seconds
	Metadata     map[string]string // opaque attributes
	LastAccessed int64             // epoch seconds
	AccessCount  int               // non-negative
	DecayScore   float64           // ArchiveSentinel when archived
}

// ChunkStore persists Chunk records (everything but the vector/keyword index
// structures, which live in VectorStore/BM25Index) in SQLite.
type ChunkStore interface {
	// Add appends chunks atomically. Source is normalized to forward slashes
	// before storage.
	Add(ctx context.Context, chunks []*Chunk) error

	// Get returns a chunk by ID, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (*Chunk, error)

	// GetByIDs batch-retrieves chunks, skipping any ID that doesn't exist.
	GetByIDs(ctx context.Context, ids []string) ([]*Chunk, error)

	// FindByPrefix returns the first chunk whose text starts with prefix,
	// ordered by ID for determinism. Returns (nil, nil) if none match.
	FindByPrefix(ctx context.Context, prefix string) (*Chunk, error)

	// All returns every chunk, for decay rescoring and reports.
	All(ctx context.Context) ([]*Chunk, error)

	// Touch updates last_accessed/access_count for a chunk in place.
	Touch(ctx context.Context, id string, lastAccessed int64, accessCount int) error

	// SetDecay updates the decay score for a chunk in place.
	SetDecay(ctx context.Context, id string, score float64) error

	// Count returns the number of chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// Document represents a document to be indexed in BM25.
type Document struct {
	ID      string // Chunk ID
	Content string // Text content
}

// BM25Result represents a single BM25 search result.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the BM25 index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search using the BM25 algorithm.
type BM25Index interface {
	// Index adds documents to the index
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes documents from index
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs in the index (for consistency checks)
	AllIDs() ([]string, error)

	// Stats returns index statistics
	Stats() *IndexStats

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the BM25 index.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2)
	K1 float64

	// B is the length normalization parameter (default: 0.75)
	B float64

	// StopWords is a list of words to filter out during tokenization
	StopWords []string

	// MinTokenLength is minimum token length to index (default: 2)
	MinTokenLength int
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords contains common English stop words filtered out of
// knowledge-document indexing.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
	"to", "of", "in", "on", "at", "for", "with", "this", "that", "it",
	"be", "as", "by", "from", "has", "have", "had",
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension D
	Dimensions int

	// Quantization names a vector precision: "f32", "f16", "i8" (default: "f16").
	// HNSWStore records it in its metadata but stores float32 vectors
	// regardless of this value.
	Quantization string

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 32)
	M int

	// EfConstruction is HNSW build-time search width (default: 128).
	// HNSWStore does not pass it to the coder/hnsw graph.
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides approximate nearest-neighbor search over embeddings.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks)
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector dimension mismatch against the
// table's established dimension D.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reindex required)", e.Expected, e.Got)
}

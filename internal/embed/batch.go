package embed

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
)

// BatchClient implements the embed(texts[]) operation: fingerprint-cached,
// batched into groups of BatchSize, submitted with up to
// MaxConcurrentBatches workers, each batch retried once on failure after a
// short randomized sleep. A batch that still fails after its retry leaves
// its slots as nil rather than failing the whole call.
type BatchClient struct {
	provider Embedder
	cache    *CachedEmbedder
	breaker  *merrors.CircuitBreaker
}

// NewBatchClient wraps provider with a fingerprint cache and a circuit
// breaker that opens after repeated provider failures, so a sustained
// outage fails batches fast instead of stalling every retry in turn.
func NewBatchClient(provider Embedder) *BatchClient {
	return &BatchClient{
		provider: provider,
		cache:    NewCachedEmbedder(provider),
		breaker:  merrors.NewCircuitBreaker("embed-provider"),
	}
}

// Embed performs the full batched, cached, order-preserving embedding
// operation described by the embed(texts[]) contract. A text whose
// embedding could not be obtained (cache miss, then batch failure even
// after retry) yields a nil slot.
func (b *BatchClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := b.cache.Get(text); ok {
			results[i] = vec
			continue
		}
		uncachedIndices = append(uncachedIndices, i)
		uncachedTexts = append(uncachedTexts, text)
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	type batchJob struct {
		indices []int
		texts   []string
	}

	var jobs []batchJob
	for start := 0; start < len(uncachedTexts); start += BatchSize {
		end := start + BatchSize
		if end > len(uncachedTexts) {
			end = len(uncachedTexts)
		}
		jobs = append(jobs, batchJob{
			indices: uncachedIndices[start:end],
			texts:   uncachedTexts[start:end],
		})
	}

	sem := make(chan struct{}, MaxConcurrentBatches)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job batchJob) {
			defer wg.Done()
			defer func() { <-sem }()

			vectors := b.embedBatchWithRetry(ctx, job.texts)

			mu.Lock()
			for j, idx := range job.indices {
				results[idx] = vectors[j]
				if vectors[j] != nil {
					b.cache.Put(job.texts[j], vectors[j])
				}
			}
			mu.Unlock()
		}(job)
	}

	wg.Wait()
	return results, nil
}

// embedBatchWithRetry calls the provider through the circuit breaker, sleeps
// 1-2s and retries once on failure, and returns an all-nil slice (one slot
// per input) if the batch still fails.
func (b *BatchClient) embedBatchWithRetry(ctx context.Context, texts []string) [][]float32 {
	attempt := func() ([][]float32, error) {
		return merrors.CircuitExecuteWithResult(b.breaker,
			func() ([][]float32, error) { return b.provider.EmbedBatch(ctx, texts) },
			func() ([][]float32, error) { return nil, merrors.ErrCircuitOpen },
		)
	}

	vectors, err := attempt()
	if err == nil {
		return vectors
	}

	slog.Warn("embed_batch_failed_retrying",
		slog.Int("batch_size", len(texts)),
		slog.String("error", err.Error()))

	select {
	case <-time.After(retryBackoff()):
	case <-ctx.Done():
		return make([][]float32, len(texts))
	}

	vectors, err = attempt()
	if err == nil {
		return vectors
	}

	slog.Error("embed_batch_failed_final",
		slog.Int("batch_size", len(texts)),
		slog.String("error", err.Error()))
	return make([][]float32, len(texts))
}

// retryBackoffMin/Max bound the randomized sleep before a batch's single
// retry. Tests shrink these to keep the suite fast.
var (
	retryBackoffMin = time.Second
	retryBackoffMax = 2 * time.Second
)

// retryBackoff returns a sleep duration uniformly distributed in
// [retryBackoffMin, retryBackoffMax).
func retryBackoff() time.Duration {
	span := retryBackoffMax - retryBackoffMin
	if span <= 0 {
		return retryBackoffMin
	}
	return retryBackoffMin + time.Duration(rand.Int63n(int64(span)))
}

// Dimensions passes through to the wrapped provider.
func (b *BatchClient) Dimensions() int {
	return b.provider.Dimensions()
}

// ModelName passes through to the wrapped provider.
func (b *BatchClient) ModelName() string {
	return b.provider.ModelName()
}

// Available passes through to the wrapped provider.
func (b *BatchClient) Available(ctx context.Context) bool {
	return b.provider.Available(ctx)
}

// Close releases the wrapped provider.
func (b *BatchClient) Close() error {
	return b.provider.Close()
}

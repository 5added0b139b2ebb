package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPEmbedder calls a generic embedding provider speaking a simple
// OpenAI-compatible JSON contract: POST {model, input: []string} and receive
// {data: [{embedding: []float32}]} in the same order as input.
type HTTPEmbedder struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewHTTPEmbedder creates an embedder calling endpoint with apiKey as a
// Bearer token. dimensions is the expected (and asserted) output width.
func NewHTTPEmbedder(endpoint, apiKey, model string, dimensions int, client *http.Client) *HTTPEmbedder {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPEmbedder{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		client:     client,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponseItem struct {
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data []embedResponseItem `json:"data"`
}

// EmbedBatch calls the provider once for the whole slice. Callers that need
// batching of 50 and concurrency should use BatchClient instead, which calls
// this per-batch.
func (h *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Model: h.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed provider returned %d: %s", resp.StatusCode, string(b))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embed provider returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(parsed.Data))
	for i, item := range parsed.Data {
		if len(item.Embedding) != h.dimensions {
			return nil, fmt.Errorf("embed provider returned dimension %d, want %d", len(item.Embedding), h.dimensions)
		}
		vectors[i] = normalizeVector(item.Embedding)
	}
	return vectors, nil
}

// Embed embeds a single text.
func (h *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions returns the configured embedding dimension.
func (h *HTTPEmbedder) Dimensions() int {
	return h.dimensions
}

// ModelName returns the configured model identifier.
func (h *HTTPEmbedder) ModelName() string {
	return h.model
}

// Available performs a minimal single-text probe against the provider.
func (h *HTTPEmbedder) Available(ctx context.Context) bool {
	_, err := h.Embed(ctx, "ping")
	return err == nil
}

// Close is a no-op; the underlying *http.Client owns no exclusive resources.
func (h *HTTPEmbedder) Close() error {
	return nil
}

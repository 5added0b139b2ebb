package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embedResponse{Data: make([]embedResponseItem, len(req.Input))}
		for i := range req.Input {
			vec := make([]float32, dims)
			for j := range vec {
				vec[j] = float32(i + j)
			}
			resp.Data[i] = embedResponseItem{Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPEmbedder_EmbedBatchReturnsNormalizedVectors(t *testing.T) {
	srv := newTestEmbedServer(t, 4)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-key", "test-model", 4, nil)
	got, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 4)
}

func TestHTTPEmbedder_DimensionMismatchErrors(t *testing.T) {
	srv := newTestEmbedServer(t, 4)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "test-model", 8, nil) // expects 8, server sends 4
	_, err := e.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestHTTPEmbedder_NonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "test-model", 4, nil)
	_, err := e.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestHTTPEmbedder_EmptyInputReturnsEmpty(t *testing.T) {
	e := NewHTTPEmbedder("http://unused", "", "test-model", 4, nil)
	got, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTTPEmbedder_AvailableProbesProvider(t *testing.T) {
	srv := newTestEmbedServer(t, 4)
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", "test-model", 4, nil)
	assert.True(t, e.Available(context.Background()))
}

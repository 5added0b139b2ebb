package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_MissOnEmptyCache(t *testing.T) {
	c, err := NewResponseCache("", 4)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, _, ok := c.Get(context.Background(), []float32{1, 0, 0, 0})
	assert.False(t, ok)
}

func TestResponseCache_HitOnNearIdenticalVector(t *testing.T) {
	c, err := NewResponseCache("", 4)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "what is midos", []float32{1, 0, 0, 0}, "midos is a knowledge server", "hybrid"))

	resp, similarity, ok := c.Get(ctx, []float32{0.999, 0.001, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "midos is a knowledge server", resp)
	assert.Greater(t, similarity, float32(ResponseCacheThreshold))
}

func TestResponseCache_MissBelowThreshold(t *testing.T) {
	c, err := NewResponseCache("", 4)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "what is midos", []float32{1, 0, 0, 0}, "midos is a knowledge server", "hybrid"))

	_, _, ok := c.Get(ctx, []float32{0, 1, 0, 0})
	assert.False(t, ok)
}

func TestResponseCache_StatsReflectsEntryCount(t *testing.T) {
	c, err := NewResponseCache("", 4)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "q1", []float32{1, 0, 0, 0}, "a1", "hybrid"))
	require.NoError(t, c.Put(ctx, "q2", []float32{0, 1, 0, 0}, "a2", "hybrid"))

	assert.Equal(t, 2, c.Stats())
}

func TestResponseCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := NewResponseCache(dir, 4)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "what is midos", []float32{1, 0, 0, 0}, "midos is a knowledge server", "hybrid"))
	require.NoError(t, c.Close())

	reopened, err := NewResponseCache(dir, 4)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	resp, _, ok := reopened.Get(ctx, []float32{1, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "midos is a knowledge server", resp)
}

func TestResponseCache_PersistsToConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := NewResponseCache(dir, 4)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "what is midos", []float32{1, 0, 0, 0}, "midos is a knowledge server", "hybrid"))
	require.NoError(t, c.Close())

	assert.FileExists(t, filepath.Join(dir, "semantic_cache.hnsw"))
	assert.FileExists(t, filepath.Join(dir, "semantic_cache.json"))
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStoreAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s, err := NewHNSWStore("main", DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	defer s.Close()

	err = s.Add(ctx, []string{"a", "b"}, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestHNSWStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := NewHNSWStore("main", DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	defer s.Close()

	err = s.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
}

func TestHNSWStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s, err := NewHNSWStore("main", DefaultVectorStoreConfig(3))
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, []string{"x"}, [][]float32{{0.1, 0.2, 0.3}}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	dims, err := ReadHNSWStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)

	loaded, err := NewHNSWStore("main", DefaultVectorStoreConfig(3))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))
	assert.True(t, loaded.Contains("x"))
	assert.Equal(t, 1, loaded.Count())
}

func TestHNSWStoreLazyDeleteReplacesID(t *testing.T) {
	ctx := context.Background()
	s, err := NewHNSWStore("main", DefaultVectorStoreConfig(2))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0}}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{0, 1}}))
	assert.Equal(t, 1, s.Count())

	require.NoError(t, s.Delete(ctx, []string{"a"}))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, s.Count())
}

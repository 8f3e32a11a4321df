package ports

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitterParserParsesGoFile(t *testing.T) {
	p := NewTreeSitterParser()
	defer p.Close()

	source := []byte("package main\n\nfunc helper() {}\n\nfunc main() {\n\thelper()\n}\n")
	chunks, refs, err := p.Parse(context.Background(), "main.go", source, "go")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Len(t, refs, 1)
}

func TestNoopRerankerPreservesOrder(t *testing.T) {
	r := NoopReranker{}
	scores, err := r.Score(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Greater(t, scores[0], scores[1])
	assert.Greater(t, scores[1], scores[2])
}

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}
func (s *stubEmbedder) Dimensions() int                        { return 1 }
func (s *stubEmbedder) ModelName() string                      { return "stub" }
func (s *stubEmbedder) Available(ctx context.Context) bool     { return true }
func (s *stubEmbedder) Close() error                           { return nil }

func TestCachedEmbedderAvoidsRecomputation(t *testing.T) {
	inner := &stubEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	v1, err := cached.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)
	v2, err := cached.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
}

func TestScannerFileSourceWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0o644))

	src, err := NewScannerFileSource()
	require.NoError(t, err)

	entries, err := src.Walk(context.Background(), dir)
	require.NoError(t, err)

	var seen []string
	for e := range entries {
		require.NoError(t, e.Err)
		seen = append(seen, e.Path)
	}
	assert.Contains(t, seen, "a.go")
}

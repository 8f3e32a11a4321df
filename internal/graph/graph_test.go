package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func newTestMetadata(t *testing.T) store.MetadataStore {
	t.Helper()
	metadata, err := store.NewSQLiteMetadataStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })
	return metadata
}

func seedRef(t *testing.T, metadata store.MetadataStore, repoID, filePath, caller, callee string, line int) {
	t.Helper()
	ref := &store.SymbolReference{
		RepositoryID:  repoID,
		FilePath:      filePath,
		Line:          line,
		CallerSymbol:  caller,
		CalleeSymbol:  callee,
		ReferenceKind: store.ReferenceKindCall,
	}
	require.NoError(t, metadata.ReplaceFileChunks(context.Background(), repoID, filePath, nil, []*store.SymbolReference{ref}, "hash-"+filePath))
}

// Chain: main -> b -> a -> target. Impact(target) should surface b, a,
// main at depths 1, 2, 3 respectively.
func TestImpactWalksTransitiveCallersByDepth(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "a.go", "a", "target", 10)
	seedRef(t, metadata, "repo1", "b.go", "b", "a", 20)
	seedRef(t, metadata, "repo1", "main.go", "main", "b", 30)

	g := New(metadata)
	edges, err := g.Impact(context.Background(), "target", 5, "repo1")
	require.NoError(t, err)
	require.Len(t, edges, 3)

	byDepth := map[int]string{}
	for _, e := range edges {
		byDepth[e.Depth] = e.Symbol
	}
	assert.Equal(t, "a", byDepth[1])
	assert.Equal(t, "b", byDepth[2])
	assert.Equal(t, "main", byDepth[3])
}

func TestImpactStopsAtMaxDepth(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "a.go", "a", "target", 10)
	seedRef(t, metadata, "repo1", "b.go", "b", "a", 20)

	g := New(metadata)
	edges, err := g.Impact(context.Background(), "target", 1, "repo1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Symbol)
}

func TestImpactIsCycleSafe(t *testing.T) {
	metadata := newTestMetadata(t)
	// a -> target, target -> a (cycle back through a different edge).
	seedRef(t, metadata, "repo1", "a.go", "a", "target", 10)
	seedRef(t, metadata, "repo1", "target.go", "target", "a", 5)

	g := New(metadata)
	edges, err := g.Impact(context.Background(), "target", 10, "repo1")
	require.NoError(t, err)

	// a is reached once at depth 1; the cycle back to target must not
	// cause target (or a again) to be re-expanded.
	seen := map[string]int{}
	for _, e := range edges {
		seen[e.Symbol]++
	}
	assert.Equal(t, 1, seen["a"])
}

func TestImpactIncludesAnonymousCallers(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "main.go", "", "target", 1)

	g := New(metadata)
	edges, err := g.Impact(context.Background(), "target", 5, "repo1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "", edges[0].Symbol)
	assert.Equal(t, 1, edges[0].Depth)
}

func TestImpactRejectsEmptySymbol(t *testing.T) {
	g := New(newTestMetadata(t))
	_, err := g.Impact(context.Background(), "", 5, "repo1")
	assert.Error(t, err)
}

func TestImpactSpansAllRepositoriesWhenRepoIDEmpty(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "a.go", "a", "target", 10)
	seedRef(t, metadata, "repo2", "b.go", "b", "target", 20)

	g := New(metadata)
	edges, err := g.Impact(context.Background(), "target", 5, "")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestContextReturnsCallersAndCallees(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "a.go", "caller1", "target", 10)
	seedRef(t, metadata, "repo1", "b.go", "caller2", "target", 20)
	seedRef(t, metadata, "repo1", "c.go", "target", "callee1", 30)

	g := New(metadata)
	ctx, err := g.Context(context.Background(), "target", 0, "repo1")
	require.NoError(t, err)
	assert.Len(t, ctx.Callers, 2)
	assert.Len(t, ctx.Callees, 1)
}

func TestContextAppliesIndependentLimitPerSide(t *testing.T) {
	metadata := newTestMetadata(t)
	seedRef(t, metadata, "repo1", "a.go", "caller1", "target", 10)
	seedRef(t, metadata, "repo1", "b.go", "caller2", "target", 20)
	seedRef(t, metadata, "repo1", "c.go", "target", "callee1", 30)

	g := New(metadata)
	ctx, err := g.Context(context.Background(), "target", 1, "repo1")
	require.NoError(t, err)
	assert.Len(t, ctx.Callers, 1)
	assert.Len(t, ctx.Callees, 1)
}

func TestContextRejectsEmptySymbol(t *testing.T) {
	g := New(newTestMetadata(t))
	_, err := g.Context(context.Background(), "", 0, "repo1")
	assert.Error(t, err)
}

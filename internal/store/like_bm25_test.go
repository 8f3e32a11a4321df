package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeKeywordIndexSymbolOutweighsContent(t *testing.T) {
	ctx := context.Background()
	idx, err := NewLikeKeywordIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "content-only", Content: "retry backoff retry backoff", SymbolName: "unrelated"},
		{ID: "symbol-match", Content: "unrelated body", SymbolName: "retryBackoff"},
	}))

	results, err := idx.Search(ctx, "retry backoff", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "symbol-match", results[0].DocID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestEscapeLikeTermNeutralizesWildcards(t *testing.T) {
	assert.Equal(t, `100!%`, escapeLikeTerm("100%"))
	assert.Equal(t, `a!_b`, escapeLikeTerm("a_b"))
	assert.Equal(t, `a!!b`, escapeLikeTerm("a!b"))
}

func TestLikeKeywordIndexFindsTermBesideLiteralPercent(t *testing.T) {
	ctx := context.Background()
	idx, err := NewLikeKeywordIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "pct", Content: "return 100% done", SymbolName: ""},
	}))

	results, err := idx.Search(ctx, "100", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pct", results[0].DocID)
}

func TestLikeKeywordIndexDeleteRemovesDocument(t *testing.T) {
	ctx := context.Background()
	idx, err := NewLikeKeywordIndex("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "a", Content: "alpha", SymbolName: ""},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	results, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, idx.Stats().DocumentCount)
}

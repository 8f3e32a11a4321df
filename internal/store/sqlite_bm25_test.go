package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKeywordIndexIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSQLiteKeywordIndex("", nil)
	require.NoError(t, err)
	defer idx.Close()

	docs := []*Document{
		{ID: "c1", Content: "func validateEmail(addr string) bool { return strings.Contains(addr, \"@\") }", SymbolName: "validateEmail"},
		{ID: "c2", Content: "func parseConfig(path string) (*Config, error) { return nil, nil }", SymbolName: "parseConfig"},
	}
	require.NoError(t, idx.Index(ctx, docs))

	results, err := idx.Search(ctx, "validateEmail", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].DocID)
}

func TestSQLiteKeywordIndexMatchesSymbolName(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSQLiteKeywordIndex("", nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "c1", Content: "completely unrelated body text", SymbolName: "computeChecksum"},
	}))

	results, err := idx.Search(ctx, "computeChecksum", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].DocID)
}

func TestSQLiteKeywordIndexReindexReplaces(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSQLiteKeywordIndex("", nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{{ID: "c1", Content: "alpha beta", SymbolName: "alpha"}}))
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "c1", Content: "gamma delta", SymbolName: "gamma"}}))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	results, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteKeywordIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSQLiteKeywordIndex("", nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "c1", Content: "alpha", SymbolName: "alpha"},
		{ID: "c2", Content: "beta", SymbolName: "beta"},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"c1"}))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids)
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

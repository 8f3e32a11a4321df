package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func TestChunkFilterMatchesOnAllSetCriteria(t *testing.T) {
	q := Query{
		Languages:    []string{"go"},
		Repositories: []string{"repo1"},
		NodeKinds:    []store.NodeKind{store.NodeKindFunction},
	}
	filter := chunkFilter(q)

	match := &store.Chunk{Language: "go", RepositoryID: "repo1", NodeKind: store.NodeKindFunction}
	assert.True(t, filter(match))

	wrongLang := &store.Chunk{Language: "rust", RepositoryID: "repo1", NodeKind: store.NodeKindFunction}
	assert.False(t, filter(wrongLang))

	wrongKind := &store.Chunk{Language: "go", RepositoryID: "repo1", NodeKind: store.NodeKindStruct}
	assert.False(t, filter(wrongKind))
}

func TestChunkFilterWithNoCriteriaMatchesEverything(t *testing.T) {
	filter := chunkFilter(Query{})
	assert.True(t, filter(&store.Chunk{Language: "anything"}))
}

func TestChunkFilterRejectsNilChunk(t *testing.T) {
	filter := chunkFilter(Query{Languages: []string{"go"}})
	assert.False(t, filter(nil))
}

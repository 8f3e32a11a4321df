package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func TestCodeChunkerChunksGoFunctions(t *testing.T) {
	c := NewCodeChunker()
	defer c.Close()

	source := `package main

import "fmt"

// Greet prints a greeting.
func Greet(name string) {
	fmt.Println("hi", name)
}

func Farewell(name string) {
	fmt.Println("bye", name)
}
`
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "main.go", Content: []byte(source), Language: "go"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	var names []string
	for _, ch := range chunks {
		names = append(names, ch.SymbolName)
		assert.Equal(t, store.NodeKindFunction, ch.NodeKind)
		assert.Contains(t, ch.Content, "File: main.go")
	}
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "Farewell")
}

func TestCodeChunkerRecordsCallReferences(t *testing.T) {
	c := NewCodeChunker()
	defer c.Close()

	source := `package main

func helper() {}

func main() {
	helper()
}
`
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "main.go", Content: []byte(source), Language: "go"})
	require.NoError(t, err)

	var mainChunk *Chunk
	for _, ch := range chunks {
		if ch.SymbolName == "main" {
			mainChunk = ch
		}
	}
	require.NotNil(t, mainChunk)
	require.Len(t, mainChunk.References, 1)
	assert.Equal(t, "helper", mainChunk.References[0].CalleeSymbol)
}

func TestCodeChunkerUnsupportedLanguageFallsBackToLines(t *testing.T) {
	c := NewCodeChunker()
	defer c.Close()

	content := "line one\nline two\nline three\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "notes.txt", Content: []byte(content), Language: "text"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, store.NodeKindModule, chunks[0].NodeKind)
}

func TestCodeChunkerEmptyFileProducesNoChunks(t *testing.T) {
	c := NewCodeChunker()
	defer c.Close()

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "empty.go", Content: nil, Language: "go"})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestComputeChunkIDStableAcrossRepeatedCalls(t *testing.T) {
	id1 := ComputeChunkID("repo1", "a.go", 10, "Foo")
	id2 := ComputeChunkID("repo1", "a.go", 10, "Foo")
	assert.Equal(t, id1, id2)
}

func TestComputeChunkIDDiffersOnRepository(t *testing.T) {
	id1 := ComputeChunkID("repo1", "a.go", 10, "Foo")
	id2 := ComputeChunkID("repo2", "a.go", 10, "Foo")
	assert.NotEqual(t, id1, id2)
}

func TestComputeChunkIDDiffersOnStartLine(t *testing.T) {
	id1 := ComputeChunkID("repo1", "a.go", 10, "Foo")
	id2 := ComputeChunkID("repo1", "a.go", 11, "Foo")
	assert.NotEqual(t, id1, id2)
}

func TestCodeChunkerSplitsLargeSymbol(t *testing.T) {
	c := NewCodeChunkerWithOptions(CodeChunkerOptions{MaxChunkTokens: 20, OverlapTokens: 4})
	defer c.Close()

	body := ""
	for i := 0; i < 100; i++ {
		body += "\tfmt.Println(\"line\")\n"
	}
	source := "package main\n\nimport \"fmt\"\n\nfunc Big() {\n" + body + "}\n"

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "big.go", Content: []byte(source), Language: "go"})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, store.NodeKindFunction, ch.NodeKind)
	}
}

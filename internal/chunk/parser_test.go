package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserParseGo(t *testing.T) {
	p := NewParser()
	defer p.Close()

	source := []byte("package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")
	tree, err := p.Parse(context.Background(), source, "go")
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.False(t, tree.Root.HasError)

	funcs := tree.Root.FindAllByType("function_declaration")
	assert.Len(t, funcs, 1)
}

func TestParserUnsupportedLanguage(t *testing.T) {
	p := NewParser()
	defer p.Close()

	_, err := p.Parse(context.Background(), []byte("x"), "cobol")
	assert.Error(t, err)
}

func TestNodeWalkVisitsAllNodes(t *testing.T) {
	p := NewParser()
	defer p.Close()

	source := []byte("package main\n\nfunc A() {}\nfunc B() {}\n")
	tree, err := p.Parse(context.Background(), source, "go")
	require.NoError(t, err)

	count := 0
	tree.Root.Walk(func(n *Node) bool {
		count++
		return true
	})
	assert.Greater(t, count, 2)
}

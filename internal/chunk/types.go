package chunk

import (
	"context"
	"time"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// Chunk size defaults (based on 2025 RAG research).
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	MinChunkTokens        = 100 // Minimum viable chunk
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// Chunk is a retrievable unit of source content produced by a
// Chunker, ready to be handed to internal/index for persistence and
// embedding (spec.md §3, CodeChunk).
type Chunk struct {
	ID            string // sha256(repository_id + file_path + start_line + symbol_name)
	FilePath      string // relative to repository root
	Content       string // full content, with file/context header
	RawContent    string // just the symbol body, no header
	Context       string // package decl, imports
	Language      string
	NodeKind      store.NodeKind
	SymbolName    string
	QualifiedName string
	StartLine     int // 1-indexed
	EndLine       int // inclusive
	References    []*Reference
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reference is a call-graph edge discovered while chunking a file
// (spec.md §3, SymbolReference), prior to being assigned a repository
// ID by the indexer.
type Reference struct {
	Line          int
	CallerSymbol  string
	CalleeSymbol  string
	ReferenceKind store.ReferenceKind
}

// FileInput is input to a Chunker.
type FileInput struct {
	Path     string // relative path
	Content  []byte
	Language string
}

// Chunker splits a file into semantic chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// Symbol is a named definition found while walking a parsed tree.
type Symbol struct {
	Name       string
	Kind       store.NodeKind
	StartLine  int
	EndLine    int
	Signature  string
	DocComment string
}

// Tree is a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is a node in the AST, a simplified projection of a tree-sitter
// node so the rest of the package does not depend on tree-sitter types
// directly.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a position in source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig configures how a language's grammar maps onto the
// closed NodeKind enumeration (spec.md §3).
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	StructTypes    []string
	EnumTypes      []string
	TraitTypes     []string // interfaces, traits, protocols
	ImplTypes      []string // Rust impl blocks
	ModuleTypes    []string
	TypeAliasTypes []string
	ConstantTypes  []string
	VariableTypes  []string

	// CallTypes are node types representing a call expression, used by
	// the reference extractor to discover call-graph edges.
	CallTypes []string

	NameField string
}

// GetContent returns the source content for a node.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType finds the first child with the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType finds all children with the given type (non-recursive).
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Type == nodeType {
			result = append(result, child)
		}
	}
	return result
}

// FindAllByType recursively finds all nodes with the given type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var result []*Node
	if n.Type == nodeType {
		result = append(result, n)
	}
	for _, child := range n.Children {
		result = append(result, child.FindAllByType(nodeType)...)
	}
	return result
}

// Walk traverses the tree depth-first and calls fn for each node. fn
// returns false to stop descending into that node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

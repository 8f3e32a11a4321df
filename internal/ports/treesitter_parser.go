package ports

import (
	"context"

	"github.com/ArtemisMucaj/codesearch/internal/chunk"
)

// TreeSitterParser is the Parser port adapter over internal/chunk's
// AST-aware chunker and symbol extractor.
type TreeSitterParser struct {
	chunker   *chunk.CodeChunker
	extractor *chunk.SymbolExtractor
	parser    *chunk.Parser
	registry  *chunk.LanguageRegistry
}

// NewTreeSitterParser builds a Parser port backed by the default
// language registry.
func NewTreeSitterParser() *TreeSitterParser {
	registry := chunk.DefaultRegistry()
	return &TreeSitterParser{
		chunker:   chunk.NewCodeChunker(),
		extractor: chunk.NewSymbolExtractorWithRegistry(registry),
		parser:    chunk.NewParserWithRegistry(registry),
		registry:  registry,
	}
}

// Parse chunks the file and extracts its call-graph references.
// References are attached to chunks already (see chunk.CodeChunker),
// so the flat reference list returned here is for callers that need
// the whole-file edge set regardless of chunk boundaries.
func (p *TreeSitterParser) Parse(ctx context.Context, path string, content []byte, language string) ([]*chunk.Chunk, []*chunk.Reference, error) {
	chunks, err := p.chunker.Chunk(ctx, &chunk.FileInput{Path: path, Content: content, Language: language})
	if err != nil {
		return nil, nil, err
	}

	var refs []*chunk.Reference
	for _, c := range chunks {
		refs = append(refs, c.References...)
	}

	return chunks, refs, nil
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *TreeSitterParser) SupportedExtensions() []string {
	return p.chunker.SupportedExtensions()
}

// Close releases tree-sitter resources.
func (p *TreeSitterParser) Close() {
	p.chunker.Close()
}

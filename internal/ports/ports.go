// Package ports declares the narrow interfaces the core retrieval and
// graph engine depends on (spec.md §4.5): parser, embedder, reranker,
// and file-source. Concrete adapters in this package wrap
// internal/chunk and internal/scanner behind these contracts, and add
// a caching embedder decorator and ONNX Runtime adapters, so the core
// never imports an external collaborator directly.
package ports

import (
	"context"

	"github.com/ArtemisMucaj/codesearch/internal/chunk"
)

// Parser extracts chunks and call-graph references from one file's
// bytes. Pure and deterministic: the same (path, content) always
// yields the same output.
type Parser interface {
	Parse(ctx context.Context, path string, content []byte, language string) ([]*chunk.Chunk, []*chunk.Reference, error)
	SupportedExtensions() []string
}

// Embedder turns text into fixed-dimension vectors, preserving input
// order. D is a fixed property of the embedder instance.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// Reranker scores a query against a batch of candidate texts,
// preserving order. Scores are monotonically comparable within one
// call but not across calls.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
	Available(ctx context.Context) bool
}

// FileSourceEntry is one file yielded by a FileSource, or a per-file
// scan error (Err set, Path/AbsPath unused) that the caller should log
// and skip per spec.md §4.2's error policy.
type FileSourceEntry struct {
	Path     string // relative to the scanned root
	AbsPath  string
	Language string
	Err      error
}

// FileSource yields a finite, restartable sequence of indexable paths
// honouring gitignore-style exclusion rules.
type FileSource interface {
	Walk(ctx context.Context, root string) (<-chan FileSourceEntry, error)
}

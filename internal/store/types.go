// Package store provides the persistence layer for CodeSearch: a
// relational metadata store, a keyword (BM25-style) index, and a
// vector ANN index, all namespaced so several independent collections
// can share one data directory.
package store

import (
	"context"
	"fmt"
	"time"
)

// NodeKind is the closed enumeration of chunk kinds the parser port
// may report (spec.md §3).
type NodeKind string

const (
	NodeKindFunction  NodeKind = "function"
	NodeKindMethod    NodeKind = "method"
	NodeKindClass     NodeKind = "class"
	NodeKindStruct    NodeKind = "struct"
	NodeKindEnum      NodeKind = "enum"
	NodeKindTrait     NodeKind = "trait"
	NodeKindImpl      NodeKind = "impl"
	NodeKindModule    NodeKind = "module"
	NodeKindTypeAlias NodeKind = "type alias"
	NodeKindConstant  NodeKind = "constant"
)

// ReferenceKind is the closed enumeration of call-graph edge kinds.
type ReferenceKind string

const (
	ReferenceKindCall    ReferenceKind = "call"
	ReferenceKindTypeRef ReferenceKind = "type_ref"
	ReferenceKindImport  ReferenceKind = "import"
)

// Repository is a single indexed source tree (spec.md §3).
type Repository struct {
	ID            string // stable hash of the absolute root path
	Name          string
	RootPath      string
	Namespace     string
	FileCount     int
	ChunkCount    int
	GitignoreHash string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is a contiguous, symbol-aligned region of a source file
// (spec.md §3, CodeChunk).
type Chunk struct {
	ID            string // sha256(repo_id + file_path + start_line + symbol_name)
	RepositoryID  string
	FilePath      string // relative to repo root
	Language      string
	NodeKind      NodeKind
	SymbolName    string // optional
	QualifiedName string // optional
	StartLine     int    // 1-indexed
	EndLine       int    // inclusive, 1-indexed
	Content       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FileHash maps (repository, path) to its last-indexed content hash,
// used exclusively for incremental indexing (spec.md §3).
type FileHash struct {
	RepositoryID string
	FilePath     string
	SHA256Hex    string
}

// SymbolReference is a call-graph edge discovered at index time
// (spec.md §3).
type SymbolReference struct {
	ID            int64
	RepositoryID  string
	FilePath      string
	Line          int
	CallerSymbol  string // empty means anonymous/top-level caller
	CalleeSymbol  string // never empty
	ReferenceKind ReferenceKind
}

// IndexCheckpoint is per-repository run state kept outside the
// committed data model. The index runner clears it after a successful
// run but never saves or loads one, so an interrupted run does not
// resume from it.
type IndexCheckpoint struct {
	RepositoryID  string
	LastFilePath  string
	EmbeddedCount int
	UpdatedAt     time.Time
}

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// MetadataStore persists the relational tables of spec.md §4.1:
// repositories, chunks, file hashes, and references. Embeddings
// themselves live in a VectorStore; this store keeps no record of
// which chunk ids have one.
type MetadataStore interface {
	// Repository operations.
	SaveRepository(ctx context.Context, repo *Repository) error
	GetRepository(ctx context.Context, id string) (*Repository, error)
	GetRepositoryByRootPath(ctx context.Context, rootPath, namespace string) (*Repository, error)
	ListRepositories(ctx context.Context, namespace string) ([]*Repository, error)
	UpdateRepositoryStats(ctx context.Context, id string, fileCount, chunkCount int) error
	SetGitignoreHash(ctx context.Context, id, hash string) error
	// DeleteRepository cascades to chunks, file hashes, and references.
	DeleteRepository(ctx context.Context, id string) error

	// File-hash operations (incremental indexing).
	GetFileHash(ctx context.Context, repoID, filePath string) (string, bool, error)
	SetFileHash(ctx context.Context, repoID, filePath, sha256Hex string) error
	ListFileHashes(ctx context.Context, repoID string) (map[string]string, error)
	DeleteFileHash(ctx context.Context, repoID, filePath string) error

	// Chunk operations. ReplaceFileChunks implements the per-file
	// write contract of spec.md §4.1: remove old chunks/references/hash
	// for (repo, path), insert new ones, all in one transaction.
	ReplaceFileChunks(ctx context.Context, repoID, filePath string, chunks []*Chunk, refs []*SymbolReference, sha256Hex string) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)
	GetChunksByFile(ctx context.Context, repoID, filePath string) ([]*Chunk, error)
	DeleteChunksForPath(ctx context.Context, repoID, filePath string) error
	CountChunks(ctx context.Context, repoID string) (int, error)

	// Reference (call-graph) operations.
	CallersOf(ctx context.Context, repoID, calleeSymbol string) ([]*SymbolReference, error)
	CalleesOf(ctx context.Context, repoID, callerSymbol string) ([]*SymbolReference, error)
	EnclosingSymbol(ctx context.Context, repoID, filePath string, line int) (string, error)

	// Checkpoint operations (resumable indexing).
	SaveIndexCheckpoint(ctx context.Context, cp *IndexCheckpoint) error
	LoadIndexCheckpoint(ctx context.Context, repoID string) (*IndexCheckpoint, error)
	ClearIndexCheckpoint(ctx context.Context, repoID string) error

	Close() error
}

// Document is a unit of content handed to the keyword index.
type Document struct {
	ID         string // chunk ID
	Content    string
	SymbolName string
}

// KeywordResult is a single keyword-search hit.
type KeywordResult struct {
	DocID        string
	Score        float64 // normalized into [0,1]
	MatchedTerms []string
}

// KeywordStats describes a keyword index's contents.
type KeywordStats struct {
	DocumentCount int
	TermCount     int
}

// KeywordIndex provides keyword (BM25-style) search over chunk
// content and symbol names (spec.md §4.1).
type KeywordIndex interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *KeywordStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// DefaultCodeStopWords contains programming keywords filtered out of
// keyword-search tokenisation.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// VectorResult is a single vector-search hit. Score is cosine
// similarity normalized into [0,1].
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStoreConfig configures a namespace's HNSW index.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns the spec's reference-deployment
// HNSW parameters for a given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides approximate nearest-neighbour search over
// chunk embeddings within one namespace (spec.md §4.1).
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Dimensions() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch is returned when a write's vector dimension
// does not match the namespace's established dimension (spec.md §4.1:
// "Vector dimension mismatch on write → fatal for that namespace").
type ErrDimensionMismatch struct {
	Namespace string
	Expected  int
	Got       int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch in namespace %q: expected %d, got %d", e.Namespace, e.Expected, e.Got)
}

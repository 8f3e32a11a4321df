// Package index implements the CodeSearch indexing operation
// (spec.md §4.2): walk a source tree, detect unchanged files via
// content hash, parse changed files into chunks and call-graph
// references, embed them in batches, and persist the result per file,
// atomically.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ArtemisMucaj/codesearch/internal/chunk"
	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/ports"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// DefaultBatchSize is the number of pending chunks accumulated before
// an embedding batch call, per spec.md §4.2 ("64-128").
const DefaultBatchSize = 96

// RunnerConfig configures a single indexing run.
type RunnerConfig struct {
	RootDir   string
	Namespace string // defaults to "main"
	Name      string // human repository name; defaults to filepath.Base(RootDir)
	Force     bool   // ignore stored hashes, re-index every file
	BatchSize int    // defaults to DefaultBatchSize
}

// RunnerResult is the outcome of an indexing run.
type RunnerResult struct {
	RepositoryID string
	Files        int
	Chunks       int
	Added        int
	Modified     int
	Deleted      int
	Unchanged    int
	Duration     time.Duration
}

// RunnerDependencies are the ports and stores a Runner is built with.
type RunnerDependencies struct {
	Metadata   store.MetadataStore
	Vector     store.VectorStore
	Keyword    store.KeywordIndex
	Embedder   ports.Embedder
	Parser     ports.Parser
	FileSource ports.FileSource
	Lock       *store.NamespaceLock
}

// Runner executes indexing operations.
type Runner struct {
	deps RunnerDependencies
}

// NewRunner validates dependencies and builds a Runner.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Metadata == nil || deps.Vector == nil || deps.Keyword == nil ||
		deps.Embedder == nil || deps.Parser == nil || deps.FileSource == nil {
		return nil, cserrors.InvalidInputf("all runner dependencies are required")
	}
	return &Runner{deps: deps}, nil
}

// pendingChunk is one chunk awaiting embedding, tagged with its file
// so a cross-file batch can still be written back per file.
type pendingChunk struct {
	filePath string
	chunk    *chunk.Chunk
}

// fileWork accumulates the result of chunking one file until its
// pending chunks are embedded and flushed.
type fileWork struct {
	filePath     string
	repositoryID string
	sha256Hex    string
	isNew        bool // true if this file had no prior file_hashes row
	chunks       []*store.Chunk
	refs         []*store.SymbolReference
}

// embedBatchError marks a batch failure at the embedding step
// specifically (spec.md §4.2/§7: embedder failures degrade to a
// per-file/per-batch skip, unlike storage failures which abort the run).
type embedBatchError struct{ cause error }

func (e *embedBatchError) Error() string { return e.cause.Error() }
func (e *embedBatchError) Unwrap() error { return e.cause }

// Run executes the full indexing pipeline against cfg.RootDir.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*RunnerResult, error) {
	start := time.Now()
	if cfg.Namespace == "" {
		cfg.Namespace = "main"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	name := cfg.Name
	if name == "" {
		name = filepath.Base(cfg.RootDir)
	}

	if r.deps.Lock != nil {
		if err := r.deps.Lock.Lock(ctx); err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "acquire namespace lock", err)
		}
		defer r.deps.Lock.Unlock()
	}

	repo, err := r.getOrCreateRepository(ctx, cfg.RootDir, cfg.Namespace, name)
	if err != nil {
		return nil, err
	}

	existingHashes, err := r.deps.Metadata.ListFileHashes(ctx, repo.ID)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "list file hashes", err)
	}
	seen := make(map[string]bool, len(existingHashes))

	entries, err := r.deps.FileSource.Walk(ctx, cfg.RootDir)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "walk file source", err)
	}

	result := &RunnerResult{RepositoryID: repo.ID}
	var pending []pendingChunk
	var pendingWork = map[string]*fileWork{}

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := r.embedAndPersist(ctx, pending, pendingWork); err != nil {
			var embedErr *embedBatchError
			if !errors.As(err, &embedErr) {
				return err
			}
			// Embedding failures degrade to skipping this batch: the
			// file_hashes rows for its files are left untouched, so a
			// subsequent run picks them up again (spec.md §4.2/§7).
			files := make([]string, 0, len(pendingWork))
			for _, w := range pendingWork {
				files = append(files, w.filePath)
				if w.isNew {
					result.Added--
				} else {
					result.Modified--
				}
			}
			slog.Warn("index_embed_batch_failed",
				slog.Int("files", len(files)),
				slog.Int("chunks", len(pending)),
				slog.Any("paths", files),
				slog.String("error", embedErr.Error()))
			pending = nil
			pendingWork = map[string]*fileWork{}
			return nil
		}
		for _, w := range pendingWork {
			result.Chunks += len(w.chunks)
		}
		pending = nil
		pendingWork = map[string]*fileWork{}
		return nil
	}

	for entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if entry.Err != nil {
			slog.Warn("index_scan_warning", slog.String("error", entry.Err.Error()))
			continue
		}

		seen[entry.Path] = true
		result.Files++

		content, err := os.ReadFile(entry.AbsPath)
		if err != nil {
			slog.Warn("index_read_failed", slog.String("file", entry.Path), slog.String("error", err.Error()))
			continue
		}

		sum := sha256.Sum256(content)
		newHash := hex.EncodeToString(sum[:])

		if !cfg.Force {
			if oldHash, ok := existingHashes[entry.Path]; ok && oldHash == newHash {
				result.Unchanged++
				continue
			}
		}

		chunks, refs, err := r.deps.Parser.Parse(ctx, entry.Path, content, entry.Language)
		if err != nil {
			slog.Warn("index_parse_failed", slog.String("file", entry.Path), slog.String("error", err.Error()))
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		for _, c := range chunks {
			c.ID = chunk.ComputeChunkID(repo.ID, entry.Path, c.StartLine, c.SymbolName)
		}

		_, existed := existingHashes[entry.Path]
		if existed {
			result.Modified++
		} else {
			result.Added++
		}

		work := &fileWork{filePath: entry.Path, repositoryID: repo.ID, sha256Hex: newHash, isNew: !existed, refs: toStoreReferences(repo.ID, entry.Path, refs)}
		pendingWork[entry.Path] = work
		for _, c := range chunks {
			pending = append(pending, pendingChunk{filePath: entry.Path, chunk: c})
		}

		if len(pending) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	// Sweep files present in file_hashes but not seen on disk.
	for path := range existingHashes {
		if seen[path] {
			continue
		}
		if err := r.deps.Metadata.DeleteChunksForPath(ctx, repo.ID, path); err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "delete chunks for removed file", err)
		}
		if err := r.deps.Metadata.DeleteFileHash(ctx, repo.ID, path); err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "delete hash for removed file", err)
		}
		result.Deleted++
	}

	total, err := r.deps.Metadata.CountChunks(ctx, repo.ID)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "count chunks", err)
	}
	if err := r.deps.Metadata.UpdateRepositoryStats(ctx, repo.ID, result.Files, total); err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "update repository stats", err)
	}
	if err := r.deps.Metadata.ClearIndexCheckpoint(ctx, repo.ID); err != nil {
		slog.Warn("index_checkpoint_clear_failed", slog.String("error", err.Error()))
	}

	result.Duration = time.Since(start)
	slog.Info("index_complete",
		slog.String("repository_id", repo.ID),
		slog.Int("files", result.Files),
		slog.Int("chunks", result.Chunks),
		slog.Int("added", result.Added),
		slog.Int("modified", result.Modified),
		slog.Int("deleted", result.Deleted),
		slog.Int("unchanged", result.Unchanged),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// embedAndPersist embeds every pending chunk in one batch call, then
// writes each touched file's chunks/references/hash back atomically.
func (r *Runner) embedAndPersist(ctx context.Context, pending []pendingChunk, work map[string]*fileWork) error {
	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.chunk.Content
	}

	embeddings, err := r.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return &embedBatchError{cause: cserrors.Wrap(cserrors.Model, "embed batch", err)}
	}
	if len(embeddings) != len(pending) {
		mismatch := cserrors.New(cserrors.Model, fmt.Sprintf("embedder returned %d vectors for %d inputs", len(embeddings), len(pending)))
		return &embedBatchError{cause: mismatch}
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		w := work[p.filePath]
		w.chunks = append(w.chunks, toStoreChunk(w.repositoryID, p.chunk))
		ids[i] = p.chunk.ID
	}

	docs := make([]*store.Document, len(pending))
	for i, p := range pending {
		docs[i] = &store.Document{ID: p.chunk.ID, Content: p.chunk.Content, SymbolName: p.chunk.SymbolName}
	}
	if err := r.deps.Keyword.Index(ctx, docs); err != nil {
		return cserrors.Wrap(cserrors.Storage, "index keyword documents", err)
	}
	if err := r.deps.Vector.Add(ctx, ids, embeddings); err != nil {
		return cserrors.Wrap(cserrors.Storage, "add vectors", err)
	}

	for path, w := range work {
		if err := r.deps.Metadata.ReplaceFileChunks(ctx, w.repositoryID, path, w.chunks, w.refs, w.sha256Hex); err != nil {
			return cserrors.Wrap(cserrors.Storage, fmt.Sprintf("replace chunks for %s", path), err)
		}
	}

	return nil
}

func (r *Runner) getOrCreateRepository(ctx context.Context, root, namespace, name string) (*store.Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.InvalidInput, "resolve root path", err)
	}

	existing, err := r.deps.Metadata.GetRepositoryByRootPath(ctx, absRoot, namespace)
	if err == nil {
		return existing, nil
	}
	if cserrors.KindOf(err) != cserrors.NotFound {
		return nil, cserrors.Wrap(cserrors.Storage, "look up repository", err)
	}

	now := time.Now().UTC()
	repo := &store.Repository{
		ID:        RepositoryID(absRoot, namespace),
		Name:      name,
		RootPath:  absRoot,
		Namespace: namespace,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.deps.Metadata.SaveRepository(ctx, repo); err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "save repository", err)
	}
	return repo, nil
}

// RepositoryID derives a stable repository id from its absolute root
// path and namespace (spec.md §3: "stable hash of root path").
func RepositoryID(absRootPath, namespace string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + absRootPath))
	return hex.EncodeToString(sum[:])
}

func toStoreChunk(repoID string, c *chunk.Chunk) *store.Chunk {
	return &store.Chunk{
		ID:            c.ID,
		RepositoryID:  repoID,
		FilePath:      c.FilePath,
		Language:      c.Language,
		NodeKind:      c.NodeKind,
		SymbolName:    c.SymbolName,
		QualifiedName: c.QualifiedName,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		Content:       c.Content,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toStoreReferences(repoID, filePath string, fileRefs []*chunk.Reference) []*store.SymbolReference {
	out := make([]*store.SymbolReference, 0, len(fileRefs))
	for _, ref := range fileRefs {
		out = append(out, &store.SymbolReference{
			RepositoryID:  repoID,
			FilePath:      filePath,
			Line:          ref.Line,
			CallerSymbol:  ref.CallerSymbol,
			CalleeSymbol:  ref.CalleeSymbol,
			ReferenceKind: ref.ReferenceKind,
		})
	}
	return out
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
)

// SQLiteMetadataStore is the relational backing store for
// repositories, chunks, file hashes, and call-graph references
// (spec.md §3, §4.1). One database file holds every repository within
// a namespace; rows are partitioned by repository_id.
type SQLiteMetadataStore struct {
	mu sync.RWMutex
	db *sql.DB
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens (or creates) the metadata database at
// dataDir/metadata.db.
func NewSQLiteMetadataStore(dataDir string) (*SQLiteMetadataStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteMetadataStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteMetadataStore) initSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS repositories (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		root_path      TEXT NOT NULL,
		namespace      TEXT NOT NULL,
		file_count     INTEGER NOT NULL DEFAULT 0,
		chunk_count    INTEGER NOT NULL DEFAULT 0,
		gitignore_hash TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL,
		UNIQUE(root_path, namespace)
	);

	CREATE TABLE IF NOT EXISTS file_hashes (
		repository_id TEXT NOT NULL,
		file_path     TEXT NOT NULL,
		sha256_hex    TEXT NOT NULL,
		PRIMARY KEY (repository_id, file_path),
		FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id             TEXT PRIMARY KEY,
		repository_id  TEXT NOT NULL,
		file_path      TEXT NOT NULL,
		language       TEXT NOT NULL,
		node_kind      TEXT NOT NULL,
		symbol_name    TEXT NOT NULL DEFAULT '',
		qualified_name TEXT NOT NULL DEFAULT '',
		start_line     INTEGER NOT NULL,
		end_line       INTEGER NOT NULL,
		content        TEXT NOT NULL,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL,
		FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_repo_file ON chunks(repository_id, file_path);
	CREATE INDEX IF NOT EXISTS idx_chunks_repo_symbol ON chunks(repository_id, symbol_name);

	CREATE TABLE IF NOT EXISTS symbol_references (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		repository_id  TEXT NOT NULL,
		file_path      TEXT NOT NULL,
		line           INTEGER NOT NULL,
		caller_symbol  TEXT NOT NULL DEFAULT '',
		callee_symbol  TEXT NOT NULL,
		reference_kind TEXT NOT NULL,
		FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_refs_repo_callee ON symbol_references(repository_id, callee_symbol);
	CREATE INDEX IF NOT EXISTS idx_refs_repo_caller ON symbol_references(repository_id, caller_symbol);
	CREATE INDEX IF NOT EXISTS idx_refs_repo_file ON symbol_references(repository_id, file_path);

	CREATE TABLE IF NOT EXISTS index_checkpoints (
		repository_id  TEXT PRIMARY KEY,
		last_file_path TEXT NOT NULL,
		embedded_count INTEGER NOT NULL,
		updated_at     DATETIME NOT NULL,
		FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- Repository operations ---

func (s *SQLiteMetadataStore) SaveRepository(ctx context.Context, repo *Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, name, root_path, namespace, file_count, chunk_count, gitignore_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			root_path = excluded.root_path,
			namespace = excluded.namespace,
			file_count = excluded.file_count,
			chunk_count = excluded.chunk_count,
			gitignore_hash = excluded.gitignore_hash,
			updated_at = excluded.updated_at
	`, repo.ID, repo.Name, repo.RootPath, repo.Namespace, repo.FileCount, repo.ChunkCount, repo.GitignoreHash, repo.CreatedAt, repo.UpdatedAt)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to save repository", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) GetRepository(ctx context.Context, id string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo := &Repository{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, namespace, file_count, chunk_count, gitignore_hash, created_at, updated_at
		FROM repositories WHERE id = ?
	`, id).Scan(&repo.ID, &repo.Name, &repo.RootPath, &repo.Namespace, &repo.FileCount, &repo.ChunkCount, &repo.GitignoreHash, &repo.CreatedAt, &repo.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, cserrors.NotFoundf("repository %q", id)
	}
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to get repository", err)
	}
	return repo, nil
}

func (s *SQLiteMetadataStore) GetRepositoryByRootPath(ctx context.Context, rootPath, namespace string) (*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo := &Repository{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, namespace, file_count, chunk_count, gitignore_hash, created_at, updated_at
		FROM repositories WHERE root_path = ? AND namespace = ?
	`, rootPath, namespace).Scan(&repo.ID, &repo.Name, &repo.RootPath, &repo.Namespace, &repo.FileCount, &repo.ChunkCount, &repo.GitignoreHash, &repo.CreatedAt, &repo.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, cserrors.NotFoundf("repository at %q in namespace %q", rootPath, namespace)
	}
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to get repository by root path", err)
	}
	return repo, nil
}

func (s *SQLiteMetadataStore) ListRepositories(ctx context.Context, namespace string) ([]*Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, root_path, namespace, file_count, chunk_count, gitignore_hash, created_at, updated_at
		FROM repositories WHERE namespace = ? ORDER BY name
	`, namespace)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to list repositories", err)
	}
	defer rows.Close()

	var repos []*Repository
	for rows.Next() {
		repo := &Repository{}
		if err := rows.Scan(&repo.ID, &repo.Name, &repo.RootPath, &repo.Namespace, &repo.FileCount, &repo.ChunkCount, &repo.GitignoreHash, &repo.CreatedAt, &repo.UpdatedAt); err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "failed to scan repository", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (s *SQLiteMetadataStore) UpdateRepositoryStats(ctx context.Context, id string, fileCount, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE repositories SET file_count = ?, chunk_count = ?, updated_at = ? WHERE id = ?
	`, fileCount, chunkCount, time.Now().UTC(), id)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to update repository stats", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) SetGitignoreHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE repositories SET gitignore_hash = ?, updated_at = ? WHERE id = ?`, hash, time.Now().UTC(), id)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to set gitignore hash", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) DeleteRepository(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete repository", err)
	}
	return nil
}

// --- File-hash operations ---

func (s *SQLiteMetadataStore) GetFileHash(ctx context.Context, repoID, filePath string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT sha256_hex FROM file_hashes WHERE repository_id = ? AND file_path = ?`, repoID, filePath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, cserrors.Wrap(cserrors.Storage, "failed to get file hash", err)
	}
	return hash, true, nil
}

func (s *SQLiteMetadataStore) SetFileHash(ctx context.Context, repoID, filePath, sha256Hex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFileHashTx(ctx, s.db, repoID, filePath, sha256Hex)
}

func (s *SQLiteMetadataStore) setFileHashTx(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, repoID, filePath, sha256Hex string) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO file_hashes (repository_id, file_path, sha256_hex) VALUES (?, ?, ?)
		ON CONFLICT(repository_id, file_path) DO UPDATE SET sha256_hex = excluded.sha256_hex
	`, repoID, filePath, sha256Hex)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to set file hash", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) ListFileHashes(ctx context.Context, repoID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT file_path, sha256_hex FROM file_hashes WHERE repository_id = ?`, repoID)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to list file hashes", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "failed to scan file hash", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

func (s *SQLiteMetadataStore) DeleteFileHash(ctx context.Context, repoID, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM file_hashes WHERE repository_id = ? AND file_path = ?`, repoID, filePath)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete file hash", err)
	}
	return nil
}

// --- Chunk & reference operations ---

// ReplaceFileChunks implements the per-file write contract of
// spec.md §4.1: within one transaction, remove every chunk, reference,
// and the recorded hash for (repoID, filePath), then insert the new
// set. A half-written file is never visible to readers.
func (s *SQLiteMetadataStore) ReplaceFileChunks(ctx context.Context, repoID, filePath string, chunks []*Chunk, refs []*SymbolReference, sha256Hex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE repository_id = ? AND file_path = ?`, repoID, filePath); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete existing chunks", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_references WHERE repository_id = ? AND file_path = ?`, repoID, filePath); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete existing references", err)
	}

	now := time.Now().UTC()
	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, repository_id, file_path, language, node_kind, symbol_name, qualified_name, start_line, end_line, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to prepare chunk insert", err)
	}
	defer chunkStmt.Close()

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := chunkStmt.ExecContext(ctx, c.ID, repoID, filePath, c.Language, string(c.NodeKind), c.SymbolName, c.QualifiedName, c.StartLine, c.EndLine, c.Content, createdAt, now); err != nil {
			return cserrors.Wrap(cserrors.Storage, fmt.Sprintf("failed to insert chunk %s", c.ID), err)
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_references (repository_id, file_path, line, caller_symbol, callee_symbol, reference_kind)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to prepare reference insert", err)
	}
	defer refStmt.Close()

	for _, r := range refs {
		if _, err := refStmt.ExecContext(ctx, repoID, filePath, r.Line, r.CallerSymbol, r.CalleeSymbol, string(r.ReferenceKind)); err != nil {
			return cserrors.Wrap(cserrors.Storage, "failed to insert reference", err)
		}
	}

	if err := s.setFileHashTx(ctx, tx, repoID, filePath, sha256Hex); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to commit file transaction", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) scanChunk(row interface {
	Scan(dest ...any) error
}) (*Chunk, error) {
	c := &Chunk{}
	var nodeKind string
	err := row.Scan(&c.ID, &c.RepositoryID, &c.FilePath, &c.Language, &nodeKind, &c.SymbolName, &c.QualifiedName, &c.StartLine, &c.EndLine, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.NodeKind = NodeKind(nodeKind)
	return c, nil
}

const chunkColumns = `id, repository_id, file_path, language, node_kind, symbol_name, qualified_name, start_line, end_line, content, created_at, updated_at`

func (s *SQLiteMetadataStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	chunk, err := s.scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, cserrors.NotFoundf("chunk %q", id)
	}
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to get chunk", err)
	}
	return chunk, nil
}

func (s *SQLiteMetadataStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM chunks WHERE id IN (%s)`, chunkColumns, joinPlaceholders(placeholders))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to get chunks", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := s.scanChunk(rows)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "failed to scan chunk", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteMetadataStore) GetChunksByFile(ctx context.Context, repoID, filePath string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE repository_id = ? AND file_path = ? ORDER BY start_line`, repoID, filePath)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to get chunks by file", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := s.scanChunk(rows)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, "failed to scan chunk", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteMetadataStore) DeleteChunksForPath(ctx context.Context, repoID, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE repository_id = ? AND file_path = ?`, repoID, filePath); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete chunks", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbol_references WHERE repository_id = ? AND file_path = ?`, repoID, filePath); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete references", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_hashes WHERE repository_id = ? AND file_path = ?`, repoID, filePath); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to delete file hash", err)
	}

	if err := tx.Commit(); err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to commit delete transaction", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) CountChunks(ctx context.Context, repoID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE repository_id = ?`, repoID).Scan(&count)
	if err != nil {
		return 0, cserrors.Wrap(cserrors.Storage, "failed to count chunks", err)
	}
	return count, nil
}

// --- Reference (call-graph) operations ---

func (s *SQLiteMetadataStore) scanReferences(rows *sql.Rows) ([]*SymbolReference, error) {
	var refs []*SymbolReference
	for rows.Next() {
		r := &SymbolReference{}
		var kind string
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.FilePath, &r.Line, &r.CallerSymbol, &r.CalleeSymbol, &kind); err != nil {
			return nil, err
		}
		r.ReferenceKind = ReferenceKind(kind)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

const referenceColumns = `id, repository_id, file_path, line, caller_symbol, callee_symbol, reference_kind`

// CallersOf returns edges where calleeSymbol is the callee. An empty
// repoID is a wildcard spanning every indexed repository (spec.md
// §4.4's optional repository filter).
func (s *SQLiteMetadataStore) CallersOf(ctx context.Context, repoID, calleeSymbol string) ([]*SymbolReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + referenceColumns + ` FROM symbol_references WHERE callee_symbol = ?`
	args := []any{calleeSymbol}
	if repoID != "" {
		query += ` AND repository_id = ?`
		args = append(args, repoID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to query callers", err)
	}
	defer rows.Close()
	refs, err := s.scanReferences(rows)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to scan callers", err)
	}
	return refs, nil
}

// CalleesOf returns edges where callerSymbol is the caller. An empty
// repoID is a wildcard spanning every indexed repository.
func (s *SQLiteMetadataStore) CalleesOf(ctx context.Context, repoID, callerSymbol string) ([]*SymbolReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + referenceColumns + ` FROM symbol_references WHERE caller_symbol = ?`
	args := []any{callerSymbol}
	if repoID != "" {
		query += ` AND repository_id = ?`
		args = append(args, repoID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to query callees", err)
	}
	defer rows.Close()
	refs, err := s.scanReferences(rows)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to scan callees", err)
	}
	return refs, nil
}

// EnclosingSymbol returns the innermost chunk's symbol name covering
// line in (repoID, filePath): the chunk with the smallest line range
// such that start_line <= line <= end_line.
func (s *SQLiteMetadataStore) EnclosingSymbol(ctx context.Context, repoID, filePath string, line int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbol string
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol_name FROM chunks
		WHERE repository_id = ? AND file_path = ? AND start_line <= ? AND end_line >= ?
		ORDER BY (end_line - start_line) ASC
		LIMIT 1
	`, repoID, filePath, line, line).Scan(&symbol)
	if err == sql.ErrNoRows {
		return "", cserrors.NotFoundf("no enclosing symbol for %s:%d", filePath, line)
	}
	if err != nil {
		return "", cserrors.Wrap(cserrors.Storage, "failed to find enclosing symbol", err)
	}
	return symbol, nil
}

// --- Checkpoint operations ---

func (s *SQLiteMetadataStore) SaveIndexCheckpoint(ctx context.Context, cp *IndexCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_checkpoints (repository_id, last_file_path, embedded_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repository_id) DO UPDATE SET
			last_file_path = excluded.last_file_path,
			embedded_count = excluded.embedded_count,
			updated_at = excluded.updated_at
	`, cp.RepositoryID, cp.LastFilePath, cp.EmbeddedCount, cp.UpdatedAt)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to save index checkpoint", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) LoadIndexCheckpoint(ctx context.Context, repoID string) (*IndexCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := &IndexCheckpoint{}
	err := s.db.QueryRowContext(ctx, `
		SELECT repository_id, last_file_path, embedded_count, updated_at FROM index_checkpoints WHERE repository_id = ?
	`, repoID).Scan(&cp.RepositoryID, &cp.LastFilePath, &cp.EmbeddedCount, &cp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, cserrors.NotFoundf("index checkpoint for repository %q", repoID)
	}
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "failed to load index checkpoint", err)
	}
	return cp, nil
}

func (s *SQLiteMetadataStore) ClearIndexCheckpoint(ctx context.Context, repoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM index_checkpoints WHERE repository_id = ?`, repoID)
	if err != nil {
		return cserrors.Wrap(cserrors.Storage, "failed to clear index checkpoint", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}

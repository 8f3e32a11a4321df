package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// KeywordBackend identifies which KeywordIndex implementation a
// namespace is backed by.
type KeywordBackend string

const (
	// KeywordBackendSQLite uses SQLite FTS5 (default). Pure Go, WAL
	// mode allows concurrent multi-process read access.
	KeywordBackendSQLite KeywordBackend = "sqlite"

	// KeywordBackendBleve uses Bleve v2. Exclusive BoltDB file locking
	// restricts it to a single process.
	KeywordBackendBleve KeywordBackend = "bleve"

	// KeywordBackendLike is the reduced SQL-LIKE backend: no inverted
	// index, no FTS5 dependency, lower recall and no proper ranking,
	// intended for constrained deployments.
	KeywordBackendLike KeywordBackend = "like"
)

// NewKeywordIndexWithBackend creates a KeywordIndex using the
// specified backend. basePath should be the path without extension;
// the extension is added based on backend (.db, .bleve, .like.db).
// An empty basePath creates an in-memory index, used in tests.
func NewKeywordIndexWithBackend(basePath string, backend string) (KeywordIndex, error) {
	switch KeywordBackend(backend) {
	case KeywordBackendSQLite, "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteKeywordIndex(path, nil)

	case KeywordBackendBleve:
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveKeywordIndex(path)

	case KeywordBackendLike:
		var path string
		if basePath != "" {
			path = basePath + ".like.db"
		}
		return NewLikeKeywordIndex(path)

	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (valid options: sqlite, bleve, like)", backend)
	}
}

// DetectKeywordBackend detects which backend an existing index uses
// based on file existence, for backwards-compatible reopen.
func DetectKeywordBackend(basePath string) KeywordBackend {
	if fileExists(basePath + ".db") {
		return KeywordBackendSQLite
	}
	if dirExists(basePath + ".bleve") {
		return KeywordBackendBleve
	}
	if fileExists(basePath + ".like.db") {
		return KeywordBackendLike
	}
	return ""
}

// KeywordIndexPath returns the full path to the keyword index
// file/directory based on backend type.
func KeywordIndexPath(dataDir string, backend string) string {
	basePath := filepath.Join(dataDir, "keyword")
	switch KeywordBackend(backend) {
	case KeywordBackendBleve:
		return basePath + ".bleve"
	case KeywordBackendLike:
		return basePath + ".like.db"
	default:
		return basePath + ".db"
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

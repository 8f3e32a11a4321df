package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// likeEscape is the single-character escape used to neutralize SQL
// LIKE wildcards ('%' and '_') in user-supplied query terms. Unlike
// the conventional two-character backslash escape, the reduced index
// uses one character throughout: "!%" matches a literal percent,
// "!_" matches a literal underscore, and "!!" matches a literal "!".
const likeEscape = "!"

// escapeLikeTerm prepares a raw token for use inside a LIKE pattern,
// escaping the three characters that are otherwise special.
func escapeLikeTerm(term string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return r.Replace(term)
}

// LikeKeywordIndex is a reduced keyword backend built directly on SQL
// LIKE rather than FTS5 or an inverted index. It exists for
// deployments that cannot afford FTS5's build-time dependency or
// Bleve's on-disk footprint; it trades recall and ranking quality for
// simplicity. A document scores +1 for each query term found in its
// content and +2 for each term found in its symbol name, then the raw
// totals are scaled into [0,1] by the highest score in the result set.
type LikeKeywordIndex struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

var _ KeywordIndex = (*LikeKeywordIndex)(nil)

// NewLikeKeywordIndex opens (or creates) a reduced LIKE-based keyword
// index. An empty path opens an in-memory index.
func NewLikeKeywordIndex(path string) (*LikeKeywordIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &LikeKeywordIndex{db: db, path: path}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *LikeKeywordIndex) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS like_documents (
			doc_id  TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			symbol  TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

// Index adds or replaces documents in the index.
func (s *LikeKeywordIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO like_documents(doc_id, content, symbol) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Content, doc.SymbolName); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// Search scores every document by how many query terms it contains,
// weighting a symbol-name match twice a content match, and returns the
// results with scores scaled into [0,1].
func (s *LikeKeywordIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := TokenizeCode(query)
	terms = FilterStopWords(terms, BuildStopWordMap(DefaultCodeStopWords))
	if len(terms) == 0 {
		return []*KeywordResult{}, nil
	}

	scores := make(map[string]float64)
	matched := make(map[string][]string)

	for _, term := range terms {
		pattern := "%" + escapeLikeTerm(term) + "%"

		rows, err := s.db.QueryContext(ctx,
			`SELECT doc_id, content LIKE ? ESCAPE '!', symbol LIKE ? ESCAPE '!'
			 FROM like_documents
			 WHERE content LIKE ? ESCAPE '!' OR symbol LIKE ? ESCAPE '!'`,
			pattern, pattern, pattern, pattern)
		if err != nil {
			return nil, fmt.Errorf("search failed for term %q: %w", term, err)
		}

		for rows.Next() {
			var docID string
			var contentHit, symbolHit bool
			if err := rows.Scan(&docID, &contentHit, &symbolHit); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan result: %w", err)
			}
			if contentHit {
				scores[docID] += 1
			}
			if symbolHit {
				scores[docID] += 2
			}
			if contentHit || symbolHit {
				matched[docID] = append(matched[docID], term)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	if len(scores) == 0 {
		return []*KeywordResult{}, nil
	}

	maxScore := 0.0
	for _, sc := range scores {
		if sc > maxScore {
			maxScore = sc
		}
	}

	results := make([]*KeywordResult, 0, len(scores))
	for docID, sc := range scores {
		normalized := sc
		if maxScore > 0 {
			normalized = sc / maxScore
		}
		results = append(results, &KeywordResult{
			DocID:        docID,
			Score:        normalized,
			MatchedTerms: matched[docID],
		})
	}

	sortKeywordResultsDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes documents from the index.
func (s *LikeKeywordIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]string, len(docIDs))
	args := make([]any, len(docIDs))
	for i, id := range docIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf("DELETE FROM like_documents WHERE doc_id IN (%s)", strings.Join(placeholders, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

// AllIDs returns every document ID in the index.
func (s *LikeKeywordIndex) AllIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT doc_id FROM like_documents ORDER BY doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns index statistics. TermCount is not tracked by this
// reduced backend.
func (s *LikeKeywordIndex) Stats() *KeywordStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM like_documents`).Scan(&count); err != nil {
		return &KeywordStats{}
	}
	return &KeywordStats{DocumentCount: count}
}

// Save forces a WAL checkpoint.
func (s *LikeKeywordIndex) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Load reopens the index at path.
func (s *LikeKeywordIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		_ = s.db.Close()
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close closes the index.
func (s *LikeKeywordIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// sortKeywordResultsDesc sorts by score descending, doc_id ascending
// as a tiebreaker for determinism.
func sortKeywordResultsDesc(results []*KeywordResult) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 {
			a, b := results[j-1], results[j]
			if a.Score < b.Score || (a.Score == b.Score && a.DocID > b.DocID) {
				results[j-1], results[j] = results[j], results[j-1]
				j--
				continue
			}
			break
		}
	}
}

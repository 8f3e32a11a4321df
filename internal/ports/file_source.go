package ports

import (
	"context"
	"runtime"

	"github.com/ArtemisMucaj/codesearch/internal/scanner"
)

// ScannerFileSource is the FileSource port adapter over the
// gitignore-aware scanner, which walks the tree in a single goroutine.
type ScannerFileSource struct {
	scanner *scanner.Scanner
}

// NewScannerFileSource builds a FileSource backed by internal/scanner.
func NewScannerFileSource() (*ScannerFileSource, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, err
	}
	return &ScannerFileSource{scanner: s}, nil
}

// Walk yields every indexable file under root honouring gitignore
// rules. A scan-level failure (root unreadable, etc) is returned
// immediately; per-file errors are delivered as entries with Err set.
func (s *ScannerFileSource) Walk(ctx context.Context, root string) (<-chan FileSourceEntry, error) {
	results, err := s.scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          root,
		ExcludePatterns:  []string{"**/.codesearch/**"},
		RespectGitignore: true,
		Workers:          runtime.NumCPU(),
	})
	if err != nil {
		return nil, err
	}

	entries := make(chan FileSourceEntry)
	go func() {
		defer close(entries)
		for result := range results {
			var entry FileSourceEntry
			if result.Error != nil {
				entry = FileSourceEntry{Err: result.Error}
			} else {
				entry = FileSourceEntry{
					Path:     result.File.Path,
					AbsPath:  result.File.AbsPath,
					Language: result.File.Language,
				}
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	return entries, nil
}

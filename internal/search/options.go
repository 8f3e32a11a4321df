package search

import (
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// chunkFilter reports whether a chunk satisfies a Query's repository,
// language, and node-kind restrictions. The vector and keyword stores
// have no native filter parameter, so candidates are filtered after
// RRF fusion and hydration.
func chunkFilter(q Query) func(c *store.Chunk) bool {
	languages := toSet(q.Languages)
	repos := toSet(q.Repositories)
	kinds := make(map[store.NodeKind]struct{}, len(q.NodeKinds))
	for _, k := range q.NodeKinds {
		kinds[k] = struct{}{}
	}

	return func(c *store.Chunk) bool {
		if c == nil {
			return false
		}
		if len(languages) > 0 {
			if _, ok := languages[c.Language]; !ok {
				return false
			}
		}
		if len(repos) > 0 {
			if _, ok := repos[c.RepositoryID]; !ok {
				return false
			}
		}
		if len(kinds) > 0 {
			if _, ok := kinds[c.NodeKind]; !ok {
				return false
			}
		}
		return true
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

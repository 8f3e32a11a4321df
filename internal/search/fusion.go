package search

import (
	"sort"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// RRFFusion combines keyword and vector search results using
// Reciprocal Rank Fusion: score(d) = sum(1 / (k + rank_leg(d))) summed
// only over the legs a chunk actually appears in (spec.md §4.3 step 4,
// §8 property 5). Unlike a weighted-missing-rank scheme, a chunk
// present in only one leg gets exactly one term, not a penalized
// second one — raw fused scores land in ~[0.016, 0.033] and are never
// normalized.
type RRFFusion struct {
	K int
}

// NewRRFFusion builds an RRFFusion with the standard k=60 constant.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// Fuse combines keyword and vector results. Output is sorted by fused
// score descending, with equal scores ordered by chunk id ascending
// (spec.md §4.3's ordering guarantee).
func (f *RRFFusion) Fuse(keyword []*store.KeywordResult, vector []*store.VectorResult) []*Result {
	results := make(map[string]*Result)

	getOrCreate := func(id string) *Result {
		if r, ok := results[id]; ok {
			return r
		}
		r := &Result{Chunk: &store.Chunk{ID: id}}
		results[id] = r
		return r
	}

	for rank, kw := range keyword {
		r := getOrCreate(kw.DocID)
		r.BM25Score = kw.Score
		r.BM25Rank = rank + 1
		r.MatchedTerms = kw.MatchedTerms
		r.Score += 1.0 / float64(f.K+rank+1)
	}

	for rank, v := range vector {
		r := getOrCreate(v.ID)
		r.VecScore = float64(v.Score)
		r.VecRank = rank + 1
		r.Score += 1.0 / float64(f.K+rank+1)
		if r.BM25Rank > 0 {
			r.InBothLegs = true
		}
	}

	out := make([]*Result, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// less implements the deterministic ordering: score desc, chunk id asc.
func less(a, b *Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Chunk.ID < b.Chunk.ID
}

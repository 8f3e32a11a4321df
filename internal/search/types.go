// Package search implements hybrid semantic/keyword code search: a
// parallel semantic (vector) leg and keyword (BM25-style) leg, fused
// with Reciprocal Rank Fusion, optionally reranked by a cross-encoder.
package search

import (
	"math"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter (k=60,
// the value used by Azure AI Search, OpenSearch, and others).
const DefaultRRFConstant = 60

// MinCandidates is the floor on the candidate budget K, so small `num`
// still supplies the reranker with enough material.
const MinCandidates = 20

// ScoreFloor is the 0.1 cutoff applied only on the semantic-only path,
// before reranking (spec.md §4.3 step 5, §9's score-asymmetry note).
const ScoreFloor = 0.1

// Query is a single search request.
type Query struct {
	Text              string
	Num               int      // requested result count, default 10
	MinScore          *float64 // nil means no floor
	Languages         []string
	Repositories      []string
	NodeKinds         []store.NodeKind
	TextSearchEnabled bool // default true
	RerankEnabled     bool // default true
}

// NewQuery builds a Query with spec defaults applied.
func NewQuery(text string) Query {
	return Query{
		Text:              text,
		Num:               10,
		TextSearchEnabled: true,
		RerankEnabled:     true,
	}
}

// Result is a single search hit: the hydrated chunk plus its score.
// Score's range depends on which pipeline stage produced it: cosine
// ([0,1]), RRF fusion (~[0.016, 0.033]), or reranker (unbounded,
// monotonically comparable within one query).
type Result struct {
	Chunk        *store.Chunk
	Score        float64
	BM25Score    float64
	BM25Rank     int // 1-indexed, 0 if absent from the keyword leg
	VecScore     float64
	VecRank      int // 1-indexed, 0 if absent from the semantic leg
	InBothLegs   bool
	MatchedTerms []string
}

// Stats describes the engine's backing indices.
type Stats struct {
	KeywordStats *store.KeywordStats
	VectorCount  int
}

// CandidateBudget computes K per spec.md §4.3 step 1: K = num +
// ceil(num / ln(num)), floored at MinCandidates.
func CandidateBudget(num int) int {
	if num <= 1 {
		return MinCandidates
	}
	k := num + int(math.Ceil(float64(num)/math.Log(float64(num))))
	if k < MinCandidates {
		return MinCandidates
	}
	return k
}

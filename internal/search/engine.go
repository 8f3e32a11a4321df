package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/ports"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// Engine executes the hybrid search pipeline of spec.md §4.3:
// candidate budget, parallel semantic/keyword legs, RRF fusion,
// score-asymmetric filter, reranker, truncate and hydrate.
type Engine struct {
	metadata store.MetadataStore
	vector   store.VectorStore
	keyword  store.KeywordIndex
	embedder ports.Embedder
	reranker ports.Reranker
	fusion   *RRFFusion
}

// NewEngine builds a search Engine. reranker may be ports.NoopReranker{}.
func NewEngine(metadata store.MetadataStore, vector store.VectorStore, keyword store.KeywordIndex, embedder ports.Embedder, reranker ports.Reranker) *Engine {
	return &Engine{
		metadata: metadata,
		vector:   vector,
		keyword:  keyword,
		embedder: embedder,
		reranker: reranker,
		fusion:   NewRRFFusion(),
	}
}

// Search executes q against the hybrid pipeline and returns up to
// q.Num hydrated, scored results.
func (e *Engine) Search(ctx context.Context, q Query) ([]*Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, cserrors.InvalidInputf("query text must not be empty")
	}
	if q.Num <= 0 {
		q.Num = 10
	}

	budget := CandidateBudget(q.Num)

	var keywordResults []*store.KeywordResult
	var vectorResults []*store.VectorResult

	if q.TextSearchEnabled {
		var err error
		keywordResults, vectorResults, err = e.parallelLegs(ctx, q.Text, budget)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Model, "search legs", err)
		}
	} else {
		vec, err := e.semanticLeg(ctx, q.Text, budget)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Model, "semantic leg", err)
		}
		vectorResults = vec
	}

	var fused []*Result
	semanticOnly := !q.TextSearchEnabled
	if semanticOnly {
		fused = make([]*Result, 0, len(vectorResults))
		for rank, v := range vectorResults {
			fused = append(fused, &Result{
				Chunk:    &store.Chunk{ID: v.ID},
				Score:    float64(v.Score),
				VecScore: float64(v.Score),
				VecRank:  rank + 1,
			})
		}
	} else {
		fused = e.fusion.Fuse(keywordResults, vectorResults)
	}
	if len(fused) > budget {
		fused = fused[:budget]
	}

	fused = e.hydrate(ctx, fused)
	fused = filterByQuery(fused, q)

	fused = applyScoreFilter(fused, q.MinScore, semanticOnly)

	if q.RerankEnabled && e.reranker != nil && e.reranker.Available(ctx) {
		var err error
		fused, err = e.rerank(ctx, q.Text, fused)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Model, "rerank", err)
		}
	}

	if len(fused) > q.Num {
		fused = fused[:q.Num]
	}
	return fused, nil
}

// parallelLegs runs the keyword and semantic legs concurrently,
// tolerating a single leg's failure so the other can still serve
// results (teacher's parallelSearch shape).
func (e *Engine) parallelLegs(ctx context.Context, query string, budget int) ([]*store.KeywordResult, []*store.VectorResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	var keywordResults []*store.KeywordResult
	var vectorResults []*store.VectorResult
	var keywordErr, vectorErr error

	g.Go(func() error {
		tokens := tokenize(query)
		if len(tokens) == 0 {
			return nil
		}
		var err error
		keywordResults, err = e.keyword.Search(gctx, query, budget)
		if err != nil {
			keywordErr = err
		}
		return nil
	})

	g.Go(func() error {
		var err error
		vectorResults, err = e.semanticLeg(gctx, query, budget)
		if err != nil {
			vectorErr = err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if keywordErr != nil && vectorErr != nil {
		return nil, nil, errors.Join(keywordErr, vectorErr)
	}
	if keywordErr != nil {
		slog.Warn("keyword_leg_failed", slog.String("error", keywordErr.Error()))
	}
	if vectorErr != nil {
		slog.Warn("semantic_leg_failed", slog.String("error", vectorErr.Error()))
	}
	return keywordResults, vectorResults, nil
}

func (e *Engine) semanticLeg(ctx context.Context, query string, budget int) ([]*store.VectorResult, error) {
	embeddings, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, cserrors.New(cserrors.Model, "embedder returned no vector for query")
	}
	return e.vector.Search(ctx, embeddings[0], budget)
}

// hydrate loads full chunk metadata for every fused result's id,
// dropping entries whose chunk no longer exists (e.g. deleted after
// the vector/keyword index was last compacted).
func (e *Engine) hydrate(ctx context.Context, fused []*Result) []*Result {
	ids := make([]string, len(fused))
	for i, r := range fused {
		ids[i] = r.Chunk.ID
	}
	chunks, err := e.metadata.GetChunks(ctx, ids)
	if err != nil {
		slog.Warn("hydrate_failed", slog.String("error", err.Error()))
		return nil
	}
	byID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	out := fused[:0]
	for _, r := range fused {
		c, ok := byID[r.Chunk.ID]
		if !ok {
			continue
		}
		r.Chunk = c
		out = append(out, r)
	}
	return out
}

func filterByQuery(results []*Result, q Query) []*Result {
	filter := chunkFilter(q)
	out := results[:0]
	for _, r := range results {
		if filter(r.Chunk) {
			out = append(out, r)
		}
	}
	return out
}

// applyScoreFilter implements spec.md §4.3 step 5's asymmetry: the 0.1
// floor applies only to the semantic-only path, before reranking;
// min_score always applies, uniformly, regardless of path.
func applyScoreFilter(results []*Result, minScore *float64, semanticOnly bool) []*Result {
	out := results[:0]
	for _, r := range results {
		if semanticOnly && r.Score < ScoreFloor {
			continue
		}
		if minScore != nil && r.Score < *minScore {
			continue
		}
		out = append(out, r)
	}
	return out
}

// rerank scores (query, chunk content) pairs via the cross-encoder
// port and reorders descending by the returned score.
func (e *Engine) rerank(ctx context.Context, query string, results []*Result) ([]*Result, error) {
	if len(results) == 0 {
		return results, nil
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Content
	}
	scores, err := e.reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		results[i].Score = s
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results, nil
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := fields[:0]
	for _, f := range fields {
		if isStopWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isStopWord(token string) bool {
	for _, sw := range store.DefaultCodeStopWords {
		if token == sw {
			return true
		}
	}
	return false
}

// Stats reports the engine's backing index sizes.
func (e *Engine) Stats() *Stats {
	return &Stats{
		KeywordStats: e.keyword.Stats(),
		VectorCount:  e.vector.Count(),
	}
}

// Close releases the engine's embedder; the reranker is not closed. The
// metadata/vector/keyword stores are owned by the caller.
func (e *Engine) Close() error {
	return e.embedder.Close()
}

// Package graph answers call-graph queries over the symbol references
// discovered during indexing: impact analysis (who transitively calls
// a symbol) and symbol context (who directly calls it, and what it
// directly calls).
package graph

import (
	"context"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// Graph answers impact and context queries against a MetadataStore's
// symbol_references table.
type Graph struct {
	metadata store.MetadataStore
}

// New builds a Graph over the given metadata store.
func New(metadata store.MetadataStore) *Graph {
	return &Graph{metadata: metadata}
}

// ImpactEdge is one caller discovered while computing impact, at the
// depth it was first reached.
type ImpactEdge struct {
	Symbol        string // empty for an anonymous/top-level caller
	Depth         int
	ReferenceKind store.ReferenceKind
	FilePath      string
	Line          int
}

// Impact reverse-BFS's from symbol: depth 1 is every direct caller,
// depth 2 is callers of those callers, and so on, up to maxDepth hops.
// Each node is visited at most once; its first-seen depth is
// authoritative (spec.md §4.4). repoID restricts traversal to one
// repository; empty spans all indexed repositories.
func (g *Graph) Impact(ctx context.Context, symbol string, maxDepth int, repoID string) ([]ImpactEdge, error) {
	if symbol == "" {
		return nil, cserrors.InvalidInputf("symbol must not be empty")
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}

	var edges []ImpactEdge
	visited := map[string]bool{symbol: true}
	frontier := []string{symbol}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		seenThisLevel := map[string]bool{}

		for _, callee := range frontier {
			refs, err := g.metadata.CallersOf(ctx, repoID, callee)
			if err != nil {
				return nil, cserrors.Wrap(cserrors.Storage, "load callers", err)
			}
			for _, ref := range refs {
				// A caller already visited was reported at its first-seen depth.
				if ref.CallerSymbol != "" && visited[ref.CallerSymbol] {
					continue
				}
				edges = append(edges, ImpactEdge{
					Symbol:        ref.CallerSymbol,
					Depth:         depth,
					ReferenceKind: ref.ReferenceKind,
					FilePath:      ref.FilePath,
					Line:          ref.Line,
				})

				// Anonymous callers (CallerSymbol == "") terminate that
				// branch: there is no symbol to expand further from.
				if ref.CallerSymbol == "" {
					continue
				}
				visited[ref.CallerSymbol] = true
				if !seenThisLevel[ref.CallerSymbol] {
					seenThisLevel[ref.CallerSymbol] = true
					next = append(next, ref.CallerSymbol)
				}
			}
		}

		frontier = next
	}

	return edges, nil
}

// Context returns symbol's direct callers and callees (depth-1,
// bidirectional). limit caps each side independently; 0 means
// unlimited.
type Context struct {
	Callers []*store.SymbolReference
	Callees []*store.SymbolReference
}

// Context implements spec.md §4.4's `context(symbol, limit?, repo?)`.
func (g *Graph) Context(ctx context.Context, symbol string, limit int, repoID string) (*Context, error) {
	if symbol == "" {
		return nil, cserrors.InvalidInputf("symbol must not be empty")
	}

	callers, err := g.metadata.CallersOf(ctx, repoID, symbol)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "load callers", err)
	}
	callees, err := g.metadata.CalleesOf(ctx, repoID, symbol)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "load callees", err)
	}

	if limit > 0 {
		if len(callers) > limit {
			callers = callers[:limit]
		}
		if len(callees) > limit {
			callees = callees[:limit]
		}
	}

	return &Context{Callers: callers, Callees: callees}, nil
}

// EnclosingSymbol resolves the function/method whose body contains
// line in filePath, via the store's binary-searched definition index.
func (g *Graph) EnclosingSymbol(ctx context.Context, repoID, filePath string, line int) (string, error) {
	symbol, err := g.metadata.EnclosingSymbol(ctx, repoID, filePath, line)
	if err != nil {
		return "", cserrors.Wrap(cserrors.Storage, "resolve enclosing symbol", err)
	}
	return symbol, nil
}

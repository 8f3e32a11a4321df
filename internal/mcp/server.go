// Package mcp exposes the search and call-graph engines as Model
// Context Protocol tools (spec.md §6): search_code, analyze_impact,
// and get_symbol_context, served over stdio or HTTP.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ArtemisMucaj/codesearch/internal/graph"
	"github.com/ArtemisMucaj/codesearch/internal/search"
	"github.com/ArtemisMucaj/codesearch/pkg/version"
)

// Server bridges an MCP client to a search engine and call graph.
type Server struct {
	mcp       *sdkmcp.Server
	engine    *search.Engine
	graph     *graph.Graph
	namespace string
}

// NewServer builds a Server and registers its three tools.
func NewServer(engine *search.Engine, g *graph.Graph, namespace string) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if g == nil {
		return nil, fmt.Errorf("call graph is required")
	}

	s := &Server{
		engine:    engine,
		graph:     g,
		namespace: namespace,
	}

	s.mcp = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "codesearch",
		Version: version.Version,
	}, nil)

	sdkmcp.AddTool(s.mcp, &sdkmcp.Tool{
		Name:        "search_code",
		Description: "Hybrid keyword + semantic search over the indexed codebase. Returns ranked chunks with file, line range, and score.",
	}, s.handleSearchCode)

	sdkmcp.AddTool(s.mcp, &sdkmcp.Tool{
		Name:        "analyze_impact",
		Description: "Find everything that transitively calls a symbol, grouped by caller depth, up to a hop limit.",
	}, s.handleAnalyzeImpact)

	sdkmcp.AddTool(s.mcp, &sdkmcp.Tool{
		Name:        "get_symbol_context",
		Description: "Show a symbol's direct callers and callees.",
	}, s.handleGetSymbolContext)

	return s, nil
}

// SearchCodeInput is the search_code tool's input schema.
type SearchCodeInput struct {
	Query        string   `json:"query" jsonschema:"the search query"`
	Num          int      `json:"num,omitempty" jsonschema:"maximum number of results, default 10"`
	MinScore     float64  `json:"min_score,omitempty" jsonschema:"minimum fused score to include"`
	Languages    []string `json:"languages,omitempty" jsonschema:"restrict to these languages"`
	Repositories []string `json:"repositories,omitempty" jsonschema:"restrict to these repository ids"`
}

// SearchCodeResult is one search_code hit.
type SearchCodeResult struct {
	FilePath   string  `json:"file_path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Score      float64 `json:"score"`
	Language   string  `json:"language"`
	NodeType   string  `json:"node_type"`
	SymbolName string  `json:"symbol_name,omitempty"`
	Content    string  `json:"content"`
}

// SearchCodeOutput is the search_code tool's output schema.
type SearchCodeOutput struct {
	Results []SearchCodeResult `json:"results"`
}

func (s *Server) handleSearchCode(ctx context.Context, _ *sdkmcp.CallToolRequest, input SearchCodeInput) (
	*sdkmcp.CallToolResult, SearchCodeOutput, error,
) {
	if input.Query == "" {
		return nil, SearchCodeOutput{}, fmt.Errorf("query is required")
	}

	q := search.NewQuery(input.Query)
	if input.Num > 0 {
		q.Num = input.Num
	}
	if input.MinScore > 0 {
		q.MinScore = &input.MinScore
	}
	q.Languages = input.Languages
	q.Repositories = input.Repositories

	results, err := s.engine.Search(ctx, q)
	if err != nil {
		return nil, SearchCodeOutput{}, err
	}

	out := SearchCodeOutput{Results: make([]SearchCodeResult, len(results))}
	for i, r := range results {
		out.Results[i] = SearchCodeResult{
			FilePath:   r.Chunk.FilePath,
			StartLine:  r.Chunk.StartLine,
			EndLine:    r.Chunk.EndLine,
			Score:      r.Score,
			Language:   r.Chunk.Language,
			NodeType:   string(r.Chunk.NodeKind),
			SymbolName: r.Chunk.SymbolName,
			Content:    r.Chunk.Content,
		}
	}
	return nil, out, nil
}

// AnalyzeImpactInput is the analyze_impact tool's input schema.
type AnalyzeImpactInput struct {
	Symbol     string `json:"symbol" jsonschema:"the symbol to analyze"`
	Depth      int    `json:"depth,omitempty" jsonschema:"maximum caller hops to follow, default 5"`
	Repository string `json:"repository,omitempty" jsonschema:"restrict to one repository id"`
}

// ImpactEdgeOutput is one impact tool edge.
type ImpactEdgeOutput struct {
	Symbol        string `json:"symbol"`
	Depth         int    `json:"depth"`
	ReferenceKind string `json:"reference_kind"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
}

// AnalyzeImpactOutput is the analyze_impact tool's output schema.
type AnalyzeImpactOutput struct {
	RootSymbol      string             `json:"root_symbol"`
	TotalAffected   int                `json:"total_affected"`
	MaxDepthReached int                `json:"max_depth_reached"`
	Edges           []ImpactEdgeOutput `json:"edges"`
}

func (s *Server) handleAnalyzeImpact(ctx context.Context, _ *sdkmcp.CallToolRequest, input AnalyzeImpactInput) (
	*sdkmcp.CallToolResult, AnalyzeImpactOutput, error,
) {
	if input.Symbol == "" {
		return nil, AnalyzeImpactOutput{}, fmt.Errorf("symbol is required")
	}
	depth := input.Depth
	if depth <= 0 {
		depth = 5
	}

	edges, err := s.graph.Impact(ctx, input.Symbol, depth, input.Repository)
	if err != nil {
		return nil, AnalyzeImpactOutput{}, err
	}

	out := AnalyzeImpactOutput{RootSymbol: input.Symbol, TotalAffected: len(edges)}
	out.Edges = make([]ImpactEdgeOutput, len(edges))
	for i, e := range edges {
		out.Edges[i] = ImpactEdgeOutput{
			Symbol:        e.Symbol,
			Depth:         e.Depth,
			ReferenceKind: string(e.ReferenceKind),
			FilePath:      e.FilePath,
			Line:          e.Line,
		}
		if e.Depth > out.MaxDepthReached {
			out.MaxDepthReached = e.Depth
		}
	}
	return nil, out, nil
}

// GetSymbolContextInput is the get_symbol_context tool's input schema.
type GetSymbolContextInput struct {
	Symbol     string `json:"symbol" jsonschema:"the symbol to inspect"`
	Limit      int    `json:"limit,omitempty" jsonschema:"cap each of callers/callees independently"`
	Repository string `json:"repository,omitempty" jsonschema:"restrict to one repository id"`
}

// ContextRefOutput is one caller or callee reference.
type ContextRefOutput struct {
	Symbol        string `json:"symbol"`
	ReferenceKind string `json:"reference_kind"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
}

// GetSymbolContextOutput is the get_symbol_context tool's output schema.
type GetSymbolContextOutput struct {
	Symbol      string             `json:"symbol"`
	Callers     []ContextRefOutput `json:"callers"`
	CallerCount int                `json:"caller_count"`
	Callees     []ContextRefOutput `json:"callees"`
	CalleeCount int                `json:"callee_count"`
}

func (s *Server) handleGetSymbolContext(ctx context.Context, _ *sdkmcp.CallToolRequest, input GetSymbolContextInput) (
	*sdkmcp.CallToolResult, GetSymbolContextOutput, error,
) {
	if input.Symbol == "" {
		return nil, GetSymbolContextOutput{}, fmt.Errorf("symbol is required")
	}

	result, err := s.graph.Context(ctx, input.Symbol, input.Limit, input.Repository)
	if err != nil {
		return nil, GetSymbolContextOutput{}, err
	}

	out := GetSymbolContextOutput{
		Symbol:      input.Symbol,
		Callers:     make([]ContextRefOutput, len(result.Callers)),
		CallerCount: len(result.Callers),
		Callees:     make([]ContextRefOutput, len(result.Callees)),
		CalleeCount: len(result.Callees),
	}
	for i, r := range result.Callers {
		out.Callers[i] = ContextRefOutput{Symbol: r.CallerSymbol, ReferenceKind: string(r.ReferenceKind), FilePath: r.FilePath, Line: r.Line}
	}
	for i, r := range result.Callees {
		out.Callees[i] = ContextRefOutput{Symbol: r.CalleeSymbol, ReferenceKind: string(r.ReferenceKind), FilePath: r.FilePath, Line: r.Line}
	}
	return nil, out, nil
}

// Serve runs the server over stdio, or over HTTP when addr is non-empty.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return s.mcp.Run(ctx, &sdkmcp.StdioTransport{})
	}

	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return s.mcp }, nil)
	httpServer := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	err := httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

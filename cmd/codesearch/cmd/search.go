package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/ports"
	"github.com/ArtemisMucaj/codesearch/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		num           int
		minScore      float64
		hasMinScore   bool
		languages     []string
		repositories  []string
		format        string
		noRerank      bool
		noTextSearch  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid keyword + semantic search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := search.NewQuery(args[0])
			q.Num = num
			if hasMinScore {
				q.MinScore = &minScore
			}
			q.Languages = languages
			q.Repositories = repositories
			q.RerankEnabled = !noRerank
			q.TextSearchEnabled = !noTextSearch

			return runSearch(cmd, q, format)
		},
	}

	cmd.Flags().IntVar(&num, "num", 10, "Number of results to return")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum fused score to include")
	cmd.Flags().StringArrayVar(&languages, "language", nil, "Restrict to a language (repeatable)")
	cmd.Flags().StringArrayVar(&repositories, "repository", nil, "Restrict to a repository id (repeatable)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, or vimgrep")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Disable cross-encoder reranking")
	cmd.Flags().BoolVar(&noTextSearch, "no-text-search", false, "Semantic-only search, skip the keyword leg")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		hasMinScore = cmd.Flags().Changed("min-score")
		return nil
	}

	return cmd
}

func runSearch(cmd *cobra.Command, q search.Query, format string) error {
	ctx := cmd.Context()

	stores, err := openStores(ctx, activeConfig)
	if err != nil {
		return err
	}
	defer stores.Close()

	reranker, err := newDefaultReranker()
	if err != nil {
		return err
	}

	engine := search.NewEngine(stores.Metadata, stores.Vector, stores.Keyword, stores.Embedder, reranker)
	results, err := engine.Search(ctx, q)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "json":
		return printSearchJSON(cmd, results)
	case "vimgrep":
		return printSearchVimgrep(cmd, results)
	case "text", "":
		return printSearchText(cmd, results)
	default:
		return cserrors.InvalidInputf("unknown format %q: must be text, json, or vimgrep", format)
	}
}

// searchResultJSON is the spec §6 JSON schema for one search result.
type searchResultJSON struct {
	FilePath   string  `json:"file_path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Score      float64 `json:"score"`
	Language   string  `json:"language"`
	NodeType   string  `json:"node_type"`
	SymbolName *string `json:"symbol_name"`
	Content    string  `json:"content"`
}

func toSearchResultJSON(r *search.Result) searchResultJSON {
	var symbol *string
	if r.Chunk.SymbolName != "" {
		symbol = &r.Chunk.SymbolName
	}
	return searchResultJSON{
		FilePath:   r.Chunk.FilePath,
		StartLine:  r.Chunk.StartLine,
		EndLine:    r.Chunk.EndLine,
		Score:      r.Score,
		Language:   r.Chunk.Language,
		NodeType:   string(r.Chunk.NodeKind),
		SymbolName: symbol,
		Content:    r.Chunk.Content,
	}
}

func printSearchJSON(cmd *cobra.Command, results []*search.Result) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = toSearchResultJSON(r)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchVimgrep(cmd *cobra.Command, results []*search.Result) error {
	w := cmd.OutOrStdout()
	for _, r := range results {
		firstLine := firstLineOf(r.Chunk.Content)
		symbol := r.Chunk.SymbolName
		if symbol == "" {
			symbol = "-"
		}
		fmt.Fprintf(w, "%s:%d:1:[%.4f] %s - %s\n", r.Chunk.FilePath, r.Chunk.StartLine, r.Score, symbol, firstLine)
	}
	return nil
}

func printSearchText(cmd *cobra.Command, results []*search.Result) error {
	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, r := range results {
		symbol := r.Chunk.SymbolName
		if symbol == "" {
			symbol = "(anonymous)"
		}
		fmt.Fprintf(w, "%d. %s:%d-%d  [%s]  score=%.4f\n", i+1, r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine, symbol, r.Score)
		fmt.Fprintln(w, "   "+firstLineOf(r.Chunk.Content))
	}
	return nil
}

func firstLineOf(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[:i]
	}
	return content
}

// newDefaultReranker builds the reranker port. It always returns the
// position-preserving noop reranker; no ONNX cross-encoder is selected.
func newDefaultReranker() (ports.Reranker, error) {
	return ports.NoopReranker{}, nil
}

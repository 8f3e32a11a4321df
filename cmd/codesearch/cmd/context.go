package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/graph"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func newContextCmd() *cobra.Command {
	var limit int
	var repository string
	var format string

	cmd := &cobra.Command{
		Use:   "context <symbol>",
		Short: "Show a symbol's direct callers and callees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(cmd, args[0], limit, repository, format)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Cap each of callers/callees independently (0: unlimited)")
	cmd.Flags().StringVar(&repository, "repository", "", "Restrict to one repository id (default: all)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func runContext(cmd *cobra.Command, symbol string, limit int, repository, format string) error {
	ctx := cmd.Context()

	metadata, closer, err := openMetadataStore(activeConfig)
	if err != nil {
		return err
	}
	defer closer()

	g := graph.New(metadata)
	result, err := g.Context(ctx, symbol, limit, repository)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "json":
		return printContextJSON(cmd, symbol, result)
	case "text", "":
		return printContextText(cmd, symbol, result)
	default:
		return cserrors.InvalidInputf("unknown format %q: must be text or json", format)
	}
}

type contextRefJSON struct {
	Symbol        string `json:"symbol"`
	ReferenceKind string `json:"reference_kind"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
}

type contextJSON struct {
	Symbol      string           `json:"symbol"`
	Callers     []contextRefJSON `json:"callers"`
	CallerCount int              `json:"caller_count"`
	Callees     []contextRefJSON `json:"callees"`
	CalleeCount int              `json:"callee_count"`
}

func toContextRefJSON(refs []*store.SymbolReference, side func(r *store.SymbolReference) string) []contextRefJSON {
	out := make([]contextRefJSON, len(refs))
	for i, r := range refs {
		out[i] = contextRefJSON{
			Symbol:        side(r),
			ReferenceKind: string(r.ReferenceKind),
			FilePath:      r.FilePath,
			Line:          r.Line,
		}
	}
	return out
}

func printContextJSON(cmd *cobra.Command, symbol string, result *graph.Context) error {
	out := contextJSON{
		Symbol:      symbol,
		Callers:     toContextRefJSON(result.Callers, func(r *store.SymbolReference) string { return r.CallerSymbol }),
		CallerCount: len(result.Callers),
		Callees:     toContextRefJSON(result.Callees, func(r *store.SymbolReference) string { return r.CalleeSymbol }),
		CalleeCount: len(result.Callees),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printContextText(cmd *cobra.Command, symbol string, result *graph.Context) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", symbol)

	fmt.Fprintf(w, "  callers (%d):\n", len(result.Callers))
	for _, r := range result.Callers {
		name := r.CallerSymbol
		if name == "" {
			name = "(anonymous)"
		}
		fmt.Fprintf(w, "    %s at %s:%d\n", name, r.FilePath, r.Line)
	}

	fmt.Fprintf(w, "  callees (%d):\n", len(result.Callees))
	for _, r := range result.Callees {
		fmt.Fprintf(w, "    %s at %s:%d\n", r.CalleeSymbol, r.FilePath, r.Line)
	}
	return nil
}

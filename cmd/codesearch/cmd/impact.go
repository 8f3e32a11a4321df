package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/graph"
)

func newImpactCmd() *cobra.Command {
	var depth int
	var repository string
	var format string

	cmd := &cobra.Command{
		Use:   "impact <symbol>",
		Short: "List everything that transitively calls a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpact(cmd, args[0], depth, repository, format)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 5, "Maximum number of caller hops to follow")
	cmd.Flags().StringVar(&repository, "repository", "", "Restrict to one repository id (default: all)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func runImpact(cmd *cobra.Command, symbol string, depth int, repository, format string) error {
	ctx := cmd.Context()

	metadata, closer, err := openMetadataStore(activeConfig)
	if err != nil {
		return err
	}
	defer closer()

	g := graph.New(metadata)
	edges, err := g.Impact(ctx, symbol, depth, repository)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "json":
		return printImpactJSON(cmd, symbol, depth, edges)
	case "text", "":
		return printImpactText(cmd, symbol, edges)
	default:
		return cserrors.InvalidInputf("unknown format %q: must be text or json", format)
	}
}

type impactEdgeJSON struct {
	Symbol        string `json:"symbol"`
	Depth         int    `json:"depth"`
	ReferenceKind string `json:"reference_kind"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
}

type impactJSON struct {
	RootSymbol     string              `json:"root_symbol"`
	TotalAffected  int                 `json:"total_affected"`
	MaxDepthReached int                `json:"max_depth_reached"`
	ByDepth        [][]impactEdgeJSON `json:"by_depth"`
}

func printImpactJSON(cmd *cobra.Command, symbol string, maxDepth int, edges []graph.ImpactEdge) error {
	byDepth := make(map[int][]impactEdgeJSON)
	maxReached := 0
	for _, e := range edges {
		byDepth[e.Depth] = append(byDepth[e.Depth], impactEdgeJSON{
			Symbol:        e.Symbol,
			Depth:         e.Depth,
			ReferenceKind: string(e.ReferenceKind),
			FilePath:      e.FilePath,
			Line:          e.Line,
		})
		if e.Depth > maxReached {
			maxReached = e.Depth
		}
	}

	out := impactJSON{
		RootSymbol:      symbol,
		TotalAffected:   len(edges),
		MaxDepthReached: maxReached,
		ByDepth:         make([][]impactEdgeJSON, maxReached),
	}
	for depth := 1; depth <= maxReached; depth++ {
		out.ByDepth[depth-1] = byDepth[depth]
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printImpactText(cmd *cobra.Command, symbol string, edges []graph.ImpactEdge) error {
	w := cmd.OutOrStdout()
	if len(edges) == 0 {
		fmt.Fprintf(w, "No callers found for %s.\n", symbol)
		return nil
	}
	fmt.Fprintf(w, "%d caller(s) affect %s:\n", len(edges), symbol)
	for _, e := range edges {
		name := e.Symbol
		if name == "" {
			name = "(anonymous)"
		}
		fmt.Fprintf(w, "  [depth %d] %s (%s) at %s:%d\n", e.Depth, name, e.ReferenceKind, e.FilePath, e.Line)
	}
	return nil
}

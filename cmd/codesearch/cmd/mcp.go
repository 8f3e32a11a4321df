package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArtemisMucaj/codesearch/internal/graph"
	mcpserver "github.com/ArtemisMucaj/codesearch/internal/mcp"
	"github.com/ArtemisMucaj/codesearch/internal/search"
)

func newMCPCmd() *cobra.Command {
	var httpPort int
	var public bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve search_code, analyze_impact, and get_symbol_context over MCP",
		Long: `Runs the codesearch engine as a Model Context Protocol server, exposing
three tools: search_code, analyze_impact, and get_symbol_context.
Defaults to stdio; pass --http to listen on a TCP port instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, httpPort, public)
		},
	}

	cmd.Flags().IntVar(&httpPort, "http", 0, "Listen on this TCP port instead of stdio")
	cmd.Flags().BoolVar(&public, "public", false, "Bind 0.0.0.0 instead of localhost when --http is set")

	return cmd
}

func runMCP(cmd *cobra.Command, httpPort int, public bool) error {
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
	g := graph.New(stores.Metadata)

	server, err := mcpserver.NewServer(engine, g, activeConfig.Namespace)
	if err != nil {
		return err
	}

	addr := ""
	if httpPort > 0 {
		host := "127.0.0.1"
		if public {
			host = "0.0.0.0"
		}
		addr = fmt.Sprintf("%s:%d", host, httpPort)
		fmt.Fprintf(cmd.ErrOrStderr(), "mcp server listening on %s\n", addr)
	}

	return server.Serve(ctx, addr)
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index-wide repository, chunk, and store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type statsJSON struct {
	Namespace        string `json:"namespace"`
	Repositories     int    `json:"repositories"`
	Chunks           int    `json:"chunks"`
	VectorCount      int    `json:"vector_count"`
	VectorDimensions int    `json:"vector_dimensions"`
	KeywordDocs      int    `json:"keyword_documents"`
	KeywordTerms     int    `json:"keyword_terms"`
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
	ctx := cmd.Context()

	stores, err := openDataStores(activeConfig)
	if err != nil {
		return err
	}
	defer stores.Close()

	repos, err := stores.Metadata.ListRepositories(ctx, activeConfig.Namespace)
	if err != nil {
		return err
	}

	totalChunks := 0
	for _, r := range repos {
		totalChunks += r.ChunkCount
	}

	kwStats := stores.Keyword.Stats()

	out := statsJSON{
		Namespace:        activeConfig.Namespace,
		Repositories:     len(repos),
		Chunks:           totalChunks,
		VectorCount:      stores.Vector.Count(),
		VectorDimensions: stores.Vector.Dimensions(),
		KeywordDocs:      kwStats.DocumentCount,
		KeywordTerms:     kwStats.TermCount,
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "namespace:         %s\n", out.Namespace)
	fmt.Fprintf(w, "repositories:      %d\n", out.Repositories)
	fmt.Fprintf(w, "chunks:            %d\n", out.Chunks)
	fmt.Fprintf(w, "vectors:           %d (dim=%d)\n", out.VectorCount, out.VectorDimensions)
	fmt.Fprintf(w, "keyword documents: %d\n", out.KeywordDocs)
	fmt.Fprintf(w, "keyword terms:     %d\n", out.KeywordTerms)
	return nil
}

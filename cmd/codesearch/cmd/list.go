package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed repositories in the active namespace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runList(cmd *cobra.Command, jsonOutput bool) error {
	metadata, closer, err := openMetadataStore(activeConfig)
	if err != nil {
		return err
	}
	defer closer()

	repos, err := metadata.ListRepositories(cmd.Context(), activeConfig.Namespace)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(repos)
	}

	w := cmd.OutOrStdout()
	if len(repos) == 0 {
		fmt.Fprintln(w, "No repositories indexed in namespace", activeConfig.Namespace)
		return nil
	}
	for _, r := range repos {
		fmt.Fprintf(w, "%s  %-30s  %s  files=%d chunks=%d\n", r.ID, r.Name, r.RootPath, r.FileCount, r.ChunkCount)
	}
	return nil
}

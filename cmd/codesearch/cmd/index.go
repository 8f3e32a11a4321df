package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ArtemisMucaj/codesearch/internal/index"
	"github.com/ArtemisMucaj/codesearch/internal/output"
	"github.com/ArtemisMucaj/codesearch/internal/ports"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func newIndexCmd() *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for searching",
		Long: `Scans a directory, chunks its source files, generates embeddings, and
builds the keyword and vector indexes needed for search, impact, and
context. Unchanged files are skipped on subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(cmd, path, name, force)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Repository name (default: directory base name)")
	cmd.Flags().BoolVar(&force, "force", false, "Reindex every file, ignoring content hashes")

	return cmd
}

func runIndex(cmd *cobra.Command, path, name string, force bool) error {
	ctx := cmd.Context()

	stores, err := openStores(ctx, activeConfig)
	if err != nil {
		return err
	}
	defer stores.Close()

	parser := ports.NewTreeSitterParser()
	defer parser.Close()

	fileSource, err := ports.NewScannerFileSource()
	if err != nil {
		return err
	}

	lock := store.NewNamespaceLock(activeConfig.DataDir)

	runner, err := index.NewRunner(index.RunnerDependencies{
		Metadata:   stores.Metadata,
		Vector:     stores.Vector,
		Keyword:    stores.Keyword,
		Embedder:   stores.Embedder,
		Parser:     parser,
		FileSource: fileSource,
		Lock:       lock,
	})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, index.RunnerConfig{
		RootDir:   path,
		Namespace: activeConfig.Namespace,
		Name:      name,
		Force:     force,
	})
	if err != nil {
		return err
	}

	if err := stores.Vector.Save(stores.VectorPath); err != nil {
		return err
	}

	w := output.New(cmd.OutOrStdout())
	w.Successf("Indexed %s (%s)", path, result.RepositoryID)
	w.Statusf("", "files:     %d", result.Files)
	w.Statusf("", "chunks:    %d", result.Chunks)
	w.Statusf("", "added:     %d", result.Added)
	w.Statusf("", "modified:  %d", result.Modified)
	w.Statusf("", "deleted:   %d", result.Deleted)
	w.Statusf("", "unchanged: %d", result.Unchanged)
	w.Statusf("", "duration:  %s", result.Duration)
	return nil
}

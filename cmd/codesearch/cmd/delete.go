package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/store"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id-or-path>",
		Short: "Remove an indexed repository by id or root path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}
	return cmd
}

func runDelete(cmd *cobra.Command, idOrPath string) error {
	ctx := cmd.Context()

	stores, err := openDataStores(activeConfig)
	if err != nil {
		return err
	}
	defer stores.Close()

	repo, err := resolveRepository(ctx, stores.Metadata, idOrPath, activeConfig.Namespace)
	if err != nil {
		return err
	}

	chunkIDs, err := collectChunkIDs(ctx, stores.Metadata, repo.ID)
	if err != nil {
		return err
	}

	if len(chunkIDs) > 0 {
		if err := stores.Vector.Delete(ctx, chunkIDs); err != nil {
			return cserrors.Wrap(cserrors.Storage, "delete vectors", err)
		}
		if err := stores.Keyword.Delete(ctx, chunkIDs); err != nil {
			return cserrors.Wrap(cserrors.Storage, "delete keyword documents", err)
		}
	}

	if err := stores.Metadata.DeleteRepository(ctx, repo.ID); err != nil {
		return cserrors.Wrap(cserrors.Storage, "delete repository", err)
	}

	if err := stores.Vector.Save(stores.VectorPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s), %d chunks\n", repo.Name, repo.ID, len(chunkIDs))
	return nil
}

// resolveRepository finds a repository by its stable id first, falling
// back to its absolute root path within the active namespace. This
// mirrors index.RepositoryID's two ways of naming a repository: the
// derived id codesearch prints, or the filesystem path it was indexed
// from.
func resolveRepository(ctx context.Context, metadata store.MetadataStore, idOrPath, namespace string) (*store.Repository, error) {
	if repo, err := metadata.GetRepository(ctx, idOrPath); err == nil {
		return repo, nil
	} else if cserrors.KindOf(err) != cserrors.NotFound {
		return nil, cserrors.Wrap(cserrors.Storage, "look up repository by id", err)
	}

	absPath, err := filepath.Abs(idOrPath)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.InvalidInput, "resolve path", err)
	}
	repo, err := metadata.GetRepositoryByRootPath(ctx, absPath, namespace)
	if err != nil {
		if cserrors.KindOf(err) == cserrors.NotFound {
			return nil, cserrors.NotFoundf("no repository matches id or path %q in namespace %q", idOrPath, namespace)
		}
		return nil, cserrors.Wrap(cserrors.Storage, "look up repository by path", err)
	}
	return repo, nil
}

// collectChunkIDs enumerates every chunk id belonging to a repository,
// so its vectors and keyword documents can be removed before the
// repository row itself is deleted.
func collectChunkIDs(ctx context.Context, metadata store.MetadataStore, repoID string) ([]string, error) {
	hashes, err := metadata.ListFileHashes(ctx, repoID)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "list file hashes", err)
	}

	var ids []string
	for path := range hashes {
		chunks, err := metadata.GetChunksByFile(ctx, repoID, path)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Storage, fmt.Sprintf("list chunks for %s", path), err)
		}
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

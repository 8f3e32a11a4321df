// Package cmd provides the CodeSearch CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ArtemisMucaj/codesearch/internal/config"
	"github.com/ArtemisMucaj/codesearch/internal/embed"
	cserrors "github.com/ArtemisMucaj/codesearch/internal/errors"
	"github.com/ArtemisMucaj/codesearch/internal/ports"
	"github.com/ArtemisMucaj/codesearch/internal/store"
	"github.com/ArtemisMucaj/codesearch/pkg/version"
)

// globalFlags holds the spec §6 global flag values, populated by
// PersistentPreRunE before any subcommand runs.
var globalFlags struct {
	dataDir        string
	namespace      string
	chromaURL      string
	memoryStorage  bool
	mockEmbeddings bool
	keywordBackend string
	verbose        bool
}

// NewRootCmd creates the root command for the codesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codesearch",
		Short: "Local semantic and keyword search over a codebase",
		Long: `codesearch indexes a codebase and answers hybrid (keyword + semantic)
search queries, call-graph impact/context lookups, entirely locally.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadGlobalConfig,
	}

	cmd.PersistentFlags().StringVar(&globalFlags.dataDir, "data-dir", "", "Data directory (default ~/.codesearch)")
	cmd.PersistentFlags().StringVar(&globalFlags.namespace, "namespace", "", "Index namespace (default main)")
	cmd.PersistentFlags().StringVar(&globalFlags.chromaURL, "chroma-url", "", "Remote Chroma vector store URL (not yet supported)")
	cmd.PersistentFlags().BoolVar(&globalFlags.memoryStorage, "memory-storage", false, "Use an in-memory store, discarded on exit")
	cmd.PersistentFlags().BoolVar(&globalFlags.mockEmbeddings, "mock-embeddings", false, "Use deterministic hash-based embeddings instead of a real model")
	cmd.PersistentFlags().StringVar(&globalFlags.keywordBackend, "keyword-backend", "", "Keyword index backend for new namespaces: sqlite, bleve, or like (default sqlite)")
	cmd.PersistentFlags().BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newImpactCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func loadGlobalConfig(cmd *cobra.Command, _ []string) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	if globalFlags.dataDir != "" {
		cfg.DataDir = globalFlags.dataDir
	}
	if globalFlags.namespace != "" {
		cfg.Namespace = globalFlags.namespace
	}
	if globalFlags.chromaURL != "" {
		cfg.ChromaURL = globalFlags.chromaURL
	}
	if globalFlags.memoryStorage {
		cfg.MemoryStorage = true
	}
	if globalFlags.mockEmbeddings {
		cfg.MockEmbeddings = true
	}
	if globalFlags.keywordBackend != "" {
		cfg.KeywordBackend = globalFlags.keywordBackend
	}
	cfg.Verbose = globalFlags.verbose

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	activeConfig = cfg
	return nil
}

// activeConfig is the resolved configuration for the current
// invocation, set by loadGlobalConfig.
var activeConfig *config.Config

// Execute runs the root command and maps its error, if any, to the
// spec §6 exit code contract (0 success, 1 user error, 2 fatal).
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return cserrors.ExitCode(err)
}

// metadataDirFor resolves the directory the metadata store should
// open, materializing a throwaway temp directory for --memory-storage
// (the store itself has no native :memory: mode). Returns the dir,
// the keyword-index base path without extension (empty also means
// in-memory), and a cleanup function that removes the temp dir if one
// was created.
func metadataDirFor(cfg *config.Config) (string, string, func(), error) {
	if cfg.MemoryStorage {
		tmp, err := os.MkdirTemp("", "codesearch-memory-*")
		if err != nil {
			return "", "", nil, cserrors.Wrap(cserrors.Storage, "create in-memory data directory", err)
		}
		return tmp, "", func() { _ = os.RemoveAll(tmp) }, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return "", "", nil, cserrors.Wrap(cserrors.Storage, "create data directory", err)
	}
	return cfg.DataDir, filepath.Join(cfg.DataDir, "keyword"), func() {}, nil
}

// openKeywordIndex opens the configured keyword backend (sqlite FTS5,
// bleve, or the reduced like-backend), reopening an existing namespace
// with whichever backend it was created under rather than trusting
// cfg.KeywordBackend, which only governs fresh namespaces.
func openKeywordIndex(cfg *config.Config, basePath string) (store.KeywordIndex, error) {
	backend := string(store.DetectKeywordBackend(basePath))
	if backend == "" {
		backend = cfg.KeywordBackend
	}
	keyword, err := store.NewKeywordIndexWithBackend(basePath, backend)
	if err != nil {
		return nil, cserrors.Wrap(cserrors.Storage, "open keyword index", err)
	}
	return keyword, nil
}

// openMetadataStore opens only the relational metadata store, for
// commands (impact, context, list) that never touch embeddings or the
// keyword index.
func openMetadataStore(cfg *config.Config) (store.MetadataStore, func(), error) {
	metadataDir, _, cleanupDir, err := metadataDirFor(cfg)
	if err != nil {
		return nil, nil, err
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataDir)
	if err != nil {
		cleanupDir()
		return nil, nil, cserrors.Wrap(cserrors.Storage, "open metadata store", err)
	}

	return metadata, func() {
		_ = metadata.Close()
		cleanupDir()
	}, nil
}

// vectorFileName is the on-disk HNSW snapshot written by the index
// command and read back by every other command that touches vectors.
// store.VectorStore is purely in-memory once constructed; nothing
// loads or saves it implicitly.
const vectorFileName = "vectors.hnsw"

// openedStores bundles the stores opened by openStores along with the
// vector snapshot path, so callers that mutate the vector store (index)
// know where to persist it afterward.
type openedStores struct {
	Metadata   store.MetadataStore
	Vector     store.VectorStore
	Keyword    store.KeywordIndex
	Embedder   ports.Embedder
	VectorPath string
	Close      func()
}

// openStores opens the metadata, vector, and keyword stores plus the
// embedder for the active configuration, honoring --memory-storage
// and --mock-embeddings. If a prior vectors.hnsw snapshot exists in the
// data directory it is loaded so commands see previously indexed data.
// The returned Close must be deferred by the caller; callers that add
// vectors (index) must call Vector.Save(VectorPath) before closing.
func openStores(ctx context.Context, cfg *config.Config) (*openedStores, error) {
	if cfg.ChromaURL != "" {
		return nil, cserrors.InvalidInputf("--chroma-url is not supported: only the local HNSW vector store is implemented")
	}

	var embedder ports.Embedder
	var err error
	if cfg.MockEmbeddings {
		embedder = embed.NewStaticEmbedder768()
	} else {
		embedder, err = embed.NewDefaultEmbedder(ctx)
		if err != nil {
			return nil, cserrors.Wrap(cserrors.Model, "initialize embedder", err)
		}
	}
	embedder = ports.NewCachedEmbedder(embedder, 4096)

	metadataDir, keywordBasePath, cleanupDir, err := metadataDirFor(cfg)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataDir)
	if err != nil {
		cleanupDir()
		_ = embedder.Close()
		return nil, cserrors.Wrap(cserrors.Storage, "open metadata store", err)
	}

	vector, err := store.NewHNSWStore(cfg.Namespace, store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		_ = metadata.Close()
		cleanupDir()
		_ = embedder.Close()
		return nil, cserrors.Wrap(cserrors.Storage, "open vector store", err)
	}

	vectorPath := filepath.Join(metadataDir, vectorFileName)
	if fileExists(vectorPath) {
		if err := vector.Load(vectorPath); err != nil {
			_ = vector.Close()
			_ = metadata.Close()
			cleanupDir()
			_ = embedder.Close()
			return nil, cserrors.Wrap(cserrors.Storage, "load vector snapshot", err)
		}
	}

	keyword, err := openKeywordIndex(cfg, keywordBasePath)
	if err != nil {
		_ = metadata.Close()
		_ = vector.Close()
		cleanupDir()
		_ = embedder.Close()
		return nil, err
	}

	closer := func() {
		_ = keyword.Close()
		_ = vector.Close()
		_ = metadata.Close()
		_ = embedder.Close()
		cleanupDir()
	}
	return &openedStores{
		Metadata:   metadata,
		Vector:     vector,
		Keyword:    keyword,
		Embedder:   embedder,
		VectorPath: vectorPath,
		Close:      closer,
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// dataStores bundles the metadata, vector, and keyword stores for
// commands (stats, delete) that need to inspect or mutate the full
// index but have no reason to load an embedding model.
type dataStores struct {
	Metadata   store.MetadataStore
	Vector     store.VectorStore
	Keyword    store.KeywordIndex
	VectorPath string
	Close      func()
}

// openDataStores opens the metadata, vector, and keyword stores
// without constructing an embedder. The vector store's dimension is
// read back from its own persisted metadata (store.ReadHNSWStoreDimensions);
// an un-indexed namespace has no snapshot yet and the dimension is
// immaterial until the first Add, so it defaults to 0.
func openDataStores(cfg *config.Config) (*dataStores, error) {
	if cfg.ChromaURL != "" {
		return nil, cserrors.InvalidInputf("--chroma-url is not supported: only the local HNSW vector store is implemented")
	}

	metadataDir, keywordBasePath, cleanupDir, err := metadataDirFor(cfg)
	if err != nil {
		return nil, err
	}

	metadata, err := store.NewSQLiteMetadataStore(metadataDir)
	if err != nil {
		cleanupDir()
		return nil, cserrors.Wrap(cserrors.Storage, "open metadata store", err)
	}

	vectorPath := filepath.Join(metadataDir, vectorFileName)
	dims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err != nil {
		_ = metadata.Close()
		cleanupDir()
		return nil, cserrors.Wrap(cserrors.Storage, "read vector store dimensions", err)
	}

	vector, err := store.NewHNSWStore(cfg.Namespace, store.DefaultVectorStoreConfig(dims))
	if err != nil {
		_ = metadata.Close()
		cleanupDir()
		return nil, cserrors.Wrap(cserrors.Storage, "open vector store", err)
	}
	if fileExists(vectorPath) {
		if err := vector.Load(vectorPath); err != nil {
			_ = vector.Close()
			_ = metadata.Close()
			cleanupDir()
			return nil, cserrors.Wrap(cserrors.Storage, "load vector snapshot", err)
		}
	}

	keyword, err := openKeywordIndex(cfg, keywordBasePath)
	if err != nil {
		_ = vector.Close()
		_ = metadata.Close()
		cleanupDir()
		return nil, err
	}

	return &dataStores{
		Metadata:   metadata,
		Vector:     vector,
		Keyword:    keyword,
		VectorPath: vectorPath,
		Close: func() {
			_ = keyword.Close()
			_ = vector.Close()
			_ = metadata.Close()
			cleanupDir()
		},
	}, nil
}

// Package config loads CodeSearch's runtime configuration: data
// directory, namespace, vector store backend selection, and embedder
// mode. Precedence follows the teacher's layering: defaults, then
// project config file, then environment variables, then explicit CLI
// flags (applied by the caller after Load returns).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is CodeSearch's runtime configuration (spec.md §6 global
// flags).
type Config struct {
	DataDir        string `yaml:"data_dir" json:"data_dir"`
	Namespace      string `yaml:"namespace" json:"namespace"`
	ChromaURL      string `yaml:"chroma_url" json:"chroma_url"`
	MemoryStorage  bool   `yaml:"memory_storage" json:"memory_storage"`
	MockEmbeddings bool   `yaml:"mock_embeddings" json:"mock_embeddings"`
	// KeywordBackend selects the keyword-index implementation: sqlite
	// (FTS5, default), bleve, or like (plain SQL LIKE, no inverted
	// index). Reopening an existing namespace detects the backend it
	// was created with rather than trusting this value.
	KeywordBackend string `yaml:"keyword_backend" json:"keyword_backend"`
	Verbose        bool   `yaml:"-" json:"-"`
}

// configFileName is the project-local override file, read from the
// project root that FindProjectRoot finds from the invocation directory.
const configFileName = ".codesearch.yaml"

// NewConfig returns the hardcoded defaults (spec.md §6: data dir
// `~/.codesearch`, namespace `main`).
func NewConfig() *Config {
	return &Config{
		DataDir:        defaultDataDir(),
		Namespace:      "main",
		KeywordBackend: "sqlite",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codesearch"
	}
	return filepath.Join(home, ".codesearch")
}

// Load builds a Config from defaults, an optional `.codesearch.yaml`
// in dir, and CODESEARCH_* environment variables, in that order.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.Namespace != "" {
		c.Namespace = other.Namespace
	}
	if other.ChromaURL != "" {
		c.ChromaURL = other.ChromaURL
	}
	if other.MemoryStorage {
		c.MemoryStorage = other.MemoryStorage
	}
	if other.MockEmbeddings {
		c.MockEmbeddings = other.MockEmbeddings
	}
	if other.KeywordBackend != "" {
		c.KeywordBackend = other.KeywordBackend
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODESEARCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CODESEARCH_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("CODESEARCH_CHROMA_URL"); v != "" {
		c.ChromaURL = v
	}
	if v := os.Getenv("CODESEARCH_MEMORY_STORAGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MemoryStorage = b
		}
	}
	if v := os.Getenv("CODESEARCH_MOCK_EMBEDDINGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MockEmbeddings = b
		}
	}
	if v := os.Getenv("CODESEARCH_KEYWORD_BACKEND"); v != "" {
		c.KeywordBackend = v
	}
}

// FindProjectRoot walks up from startDir looking for a `.git`
// directory or a `.codesearch.yaml` file; falls back to startDir
// itself if neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, configFileName)) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "main", cfg.Namespace)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := "namespace: feature-branch\nmock_embeddings: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature-branch", cfg.Namespace)
	assert.True(t, cfg.MockEmbeddings)
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Namespace)
}

func TestApplyEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("CODESEARCH_NAMESPACE", "from-env")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Namespace)
}

func TestFindProjectRootFindsGitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRootFallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()
	found, err := FindProjectRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, found)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.EmbeddingHiddenSize)
	assert.Equal(t, 1024, cfg.MaxEmbeddingInputLength)
	assert.Equal(t, 4096, cfg.MaxContextChars)
	assert.Equal(t, "default_collection", cfg.Qdrant.CollectionName)
	assert.Equal(t, 4096, cfg.Qdrant.VectorSize)
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL())
	assert.Equal(t, "http://127.0.0.1:8080", cfg.LlamaServer.BaseURL())
	assert.Equal(t, "/completion", cfg.LlamaServer.Endpoint)
	assert.Equal(t, 120*time.Second, cfg.LlamaServer.Timeout())
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, int64(10*1024*1024), cfg.AllowedFileSizeLimit)
}

func TestLoad_YAMLAppliesDefaultsToUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
embedding_hidden_size: 768
max_embedding_input_length: 500
qdrant:
  host: qdrant.internal
  collection_name: contracts
llama_server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 768, cfg.EmbeddingHiddenSize)
	assert.Equal(t, 500, cfg.MaxEmbeddingInputLength)
	assert.Equal(t, 2000, cfg.MaxContextChars)
	assert.Equal(t, 768, cfg.Qdrant.VectorSize)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.Qdrant.URL())
	assert.Equal(t, "contracts", cfg.Qdrant.CollectionName)
	assert.Equal(t, "http://127.0.0.1:9090", cfg.LlamaServer.BaseURL())
}

func TestLoad_TOMLMatchesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	tomlPath := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(yamlPath, []byte("embedding_hidden_size: 1024\nqdrant:\n  collection_name: kb\n"), 0o644))
	require.NoError(t, os.WriteFile(tomlPath, []byte("embedding_hidden_size = 1024\n[qdrant]\ncollection_name = \"kb\"\n"), 0o644))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromTOML, err := Load(tomlPath)
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qdrant: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCINTEL_QDRANT_API_KEY", "secret")
	t.Setenv("DOCINTEL_LLAMA_HOST", "gpu-box")
	t.Setenv("DOCINTEL_LLAMA_PORT", "8181")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Qdrant.APIKey)
	assert.Equal(t, "http://gpu-box:8181", cfg.LlamaServer.BaseURL())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Qdrant.CollectionName = "saved"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Qdrant.CollectionName)
}

func TestIsAllowedExtension(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.IsAllowedExtension("contract.PDF"))
	assert.True(t, cfg.IsAllowedExtension("notes.txt"))
	assert.False(t, cfg.IsAllowedExtension("script.exe"))
	assert.False(t, cfg.IsAllowedExtension("noext"))
}

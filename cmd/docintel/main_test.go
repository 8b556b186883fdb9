package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/dedup"
)

// offlineConfig writes a config that runs without Qdrant or llama-server.
func offlineConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`embedding_hidden_size = 64
processed_dir = '%s'
logging_level = "ERROR"

[embedding]
type = "hashing"

[vector_store]
type = "memory"

[generator]
type = "frequency"

[jobs]
db_path = '%s'
`, filepath.Join(dir, "processed"), filepath.Join(dir, "jobs.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		cfgPath = ""
		ingestJSON = false
		initCollectionRecreate = false
		embedHost, embedPort = "", 0
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestHashCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	out, err := execute(t, "hash", path)
	require.NoError(t, err)
	assert.Contains(t, out, dedup.ComputeHash([]byte("hello"))+"  "+path)

	_, err = execute(t, "hash", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestIngestCmd(t *testing.T) {
	cfg := offlineConfig(t)
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("Refunds take 14 days."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.md"), []byte("Shipping is free over 50 euros."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "c.bin"), []byte{0, 1}, 0o644))

	out, err := execute(t, "--config", cfg, "ingest", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 2 file(s)")
	assert.Contains(t, out, "a.txt")
	assert.NotContains(t, out, "c.bin")
}

func TestInitCollectionCmd(t *testing.T) {
	cfg := offlineConfig(t)
	out, err := execute(t, "--config", cfg, "init-collection", "--recreate")
	require.NoError(t, err)
	assert.Contains(t, out, "size 64")
}

func TestJobsCmd(t *testing.T) {
	cfg := offlineConfig(t)
	out, err := execute(t, "--config", cfg, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs found.")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestEmbedCmd(t *testing.T) {
	vec := make([]float64, 64)
	for i := range vec {
		vec[i] = 0.5
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	out, err := execute(t, "--config", offlineConfig(t), "embed", "--host", u.Hostname(), "--port", u.Port(), "hello", "world")
	require.NoError(t, err)

	var got []float64
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &got))
	assert.Equal(t, vec, got)
}

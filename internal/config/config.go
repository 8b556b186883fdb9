package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host           string `yaml:"host" toml:"host"`
	Port           int    `yaml:"port" toml:"port"`
	CollectionName string `yaml:"collection_name" toml:"collection_name"`
	VectorSize     int    `yaml:"vector_size" toml:"vector_size"`
	APIKey         string `yaml:"api_key" toml:"api_key"`
	Distance       string `yaml:"distance" toml:"distance"`
	TimeoutSecs    int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// URL returns the REST base URL of the Qdrant instance.
func (q QdrantConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

// LlamaServerConfig holds the inference endpoint settings.
type LlamaServerConfig struct {
	Host              string  `yaml:"host" toml:"host"`
	Port              int     `yaml:"port" toml:"port"`
	Endpoint          string  `yaml:"endpoint" toml:"endpoint"`
	EmbeddingEndpoint string  `yaml:"embedding_endpoint" toml:"embedding_endpoint"`
	TimeoutSecs       int     `yaml:"timeout_secs" toml:"timeout_secs"`
	NPredict          int     `yaml:"n_predict" toml:"n_predict"`
	Seed              int     `yaml:"seed" toml:"seed"`
	TopK              int     `yaml:"top_k" toml:"top_k"`
	TopP              float64 `yaml:"top_p" toml:"top_p"`
}

// BaseURL returns the HTTP base URL of the inference server.
func (l LlamaServerConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", l.Host, l.Port)
}

// Timeout returns the per-request timeout.
func (l LlamaServerConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSecs) * time.Second
}

// EmbeddingConfig configures chunked embedding.
type EmbeddingConfig struct {
	// Type is "llama" for the inference server or "hashing" for the offline embedder.
	Type         string `yaml:"type" toml:"type"`
	ChunkPauseMs int    `yaml:"chunk_pause_ms" toml:"chunk_pause_ms"`
}

// ChunkPause is the minimum spacing between chunk embedding requests.
func (e EmbeddingConfig) ChunkPause() time.Duration {
	return time.Duration(e.ChunkPauseMs) * time.Millisecond
}

// VectorStoreConfig selects the vector store implementation.
type VectorStoreConfig struct {
	Type string `yaml:"type" toml:"type"`
}

// GeneratorConfig selects how summaries and answers are produced.
type GeneratorConfig struct {
	Type string `yaml:"type" toml:"type"`
}

// RetrievalConfig configures knowledge-base retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" toml:"top_k"`
}

// JobsConfig locates the job bookkeeping database.
type JobsConfig struct {
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// SessionConfig configures chat session retention.
type SessionConfig struct {
	TTLSecs int `yaml:"ttl_secs" toml:"ttl_secs"`
}

// BackgroundConfig sizes the background persistence pool.
type BackgroundConfig struct {
	Workers     int `yaml:"workers" toml:"workers"`
	TimeoutSecs int `yaml:"timeout_secs" toml:"timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	EmbeddingHiddenSize     int               `yaml:"embedding_hidden_size" toml:"embedding_hidden_size"`
	MaxEmbeddingInputLength int               `yaml:"max_embedding_input_length" toml:"max_embedding_input_length"`
	MaxContextChars         int               `yaml:"max_context_chars" toml:"max_context_chars"`
	ProcessedDir            string            `yaml:"processed_dir" toml:"processed_dir"`
	AllowedFileExtensions   []string          `yaml:"allowed_file_extensions" toml:"allowed_file_extensions"`
	AllowedFileSizeLimit    int64             `yaml:"allowed_file_size_limit" toml:"allowed_file_size_limit"`
	LoggingLevel            string            `yaml:"logging_level" toml:"logging_level"`
	Qdrant                  QdrantConfig      `yaml:"qdrant" toml:"qdrant"`
	LlamaServer             LlamaServerConfig `yaml:"llama_server" toml:"llama_server"`
	Embedding               EmbeddingConfig   `yaml:"embedding" toml:"embedding"`
	VectorStore             VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Generator               GeneratorConfig   `yaml:"generator" toml:"generator"`
	Retrieval               RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Jobs                    JobsConfig        `yaml:"jobs" toml:"jobs"`
	Session                 SessionConfig     `yaml:"session" toml:"session"`
	Background              BackgroundConfig  `yaml:"background" toml:"background"`
	Server                  ServerConfig      `yaml:"server" toml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docintel/config.yaml.
// If neither exists, it writes defaults to ~/.config/docintel/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

// BackgroundTimeout bounds a single background persistence task.
func (c *AppConfig) BackgroundTimeout() time.Duration {
	return time.Duration(c.Background.TimeoutSecs) * time.Second
}

// SessionTTL is how long an idle chat session is retained.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSecs) * time.Second
}

// IsAllowedExtension reports whether filename carries one of the configured extensions.
func (c *AppConfig) IsAllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range c.AllowedFileExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docintel", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		VectorStore: VectorStoreConfig{Type: "qdrant"},
		Generator:   GeneratorConfig{Type: "llama"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.EmbeddingHiddenSize == 0 {
		cfg.EmbeddingHiddenSize = 4096
	}
	if cfg.MaxEmbeddingInputLength == 0 {
		cfg.MaxEmbeddingInputLength = 1024
	}
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = cfg.MaxEmbeddingInputLength * 4
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = "./data/processed_dir"
	}
	if len(cfg.AllowedFileExtensions) == 0 {
		cfg.AllowedFileExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".jpg", ".jpeg", ".tiff", ".png"}
	}
	if cfg.AllowedFileSizeLimit == 0 {
		cfg.AllowedFileSizeLimit = 10 * 1024 * 1024
	}
	if cfg.LoggingLevel == "" {
		cfg.LoggingLevel = "INFO"
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6333
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "default_collection"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = cfg.EmbeddingHiddenSize
	}
	if cfg.Qdrant.Distance == "" {
		cfg.Qdrant.Distance = "Cosine"
	}
	if cfg.Qdrant.TimeoutSecs == 0 {
		cfg.Qdrant.TimeoutSecs = 30
	}
	if cfg.LlamaServer.Host == "" {
		cfg.LlamaServer.Host = "127.0.0.1"
	}
	if cfg.LlamaServer.Port == 0 {
		cfg.LlamaServer.Port = 8080
	}
	if cfg.LlamaServer.Endpoint == "" {
		cfg.LlamaServer.Endpoint = "/completion"
	}
	if cfg.LlamaServer.EmbeddingEndpoint == "" {
		cfg.LlamaServer.EmbeddingEndpoint = "/embedding"
	}
	if cfg.LlamaServer.TimeoutSecs == 0 {
		cfg.LlamaServer.TimeoutSecs = 120
	}
	if cfg.LlamaServer.NPredict == 0 {
		cfg.LlamaServer.NPredict = 512
	}
	if cfg.LlamaServer.Seed == 0 {
		cfg.LlamaServer.Seed = 12345
	}
	if cfg.LlamaServer.TopK == 0 {
		cfg.LlamaServer.TopK = 40
	}
	if cfg.LlamaServer.TopP == 0 {
		cfg.LlamaServer.TopP = 0.9
	}
	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "llama"
	}
	if cfg.Embedding.ChunkPauseMs == 0 {
		cfg.Embedding.ChunkPauseMs = 100
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "llama"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Jobs.DBPath == "" {
		cfg.Jobs.DBPath = "./data/jobs.db"
	}
	if cfg.Session.TTLSecs == 0 {
		cfg.Session.TTLSecs = 3600
	}
	if cfg.Background.Workers == 0 {
		cfg.Background.Workers = 16
	}
	if cfg.Background.TimeoutSecs == 0 {
		cfg.Background.TimeoutSecs = 600
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DOCINTEL_QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v := os.Getenv("DOCINTEL_LLAMA_HOST"); v != "" {
		cfg.LlamaServer.Host = v
	}
	if v := os.Getenv("DOCINTEL_LLAMA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.LlamaServer.Port = port
		}
	}
}

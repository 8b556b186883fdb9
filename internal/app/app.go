// Package app assembles the document service from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"docintel/internal/config"
	"docintel/internal/dedup"
	"docintel/internal/domain"
	"docintel/internal/embedding"
	"docintel/internal/embedding/hashing"
	"docintel/internal/embedding/llama"
	"docintel/internal/extract"
	"docintel/internal/inference"
	"docintel/internal/jobs"
	"docintel/internal/llm"
	"docintel/internal/logger"
	"docintel/internal/persist"
	"docintel/internal/retrieval"
	"docintel/internal/service"
	"docintel/internal/session"
	"docintel/internal/summarizer"
	"docintel/internal/vectorstore"
)

// App holds the wired components. Close releases them.
type App struct {
	Config    *config.AppConfig
	Service   *service.Service
	Store     domain.VectorStore
	Embedder  domain.Embedder
	Persist   *persist.Coordinator
	Jobs      *jobs.Store
	Gate      *inference.Gate
	Retriever *retrieval.Assembler
	Sessions  *session.Store

	stopSweep context.CancelFunc
}

// Build wires every component selected by cfg.
func Build(cfg *config.AppConfig) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.LoggingLevel))
	if cfg.Qdrant.VectorSize != cfg.EmbeddingHiddenSize {
		logger.Warn("qdrant.vector_size (%d) differs from embedding_hidden_size (%d); collections are created with the embedding size.",
			cfg.Qdrant.VectorSize, cfg.EmbeddingHiddenSize)
	}
	gate := inference.NewGate()

	emb, err := newEmbedder(cfg, gate)
	if err != nil {
		return nil, err
	}
	assistant, err := newAssistant(cfg, gate)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.New(cfg)
	if err != nil {
		return nil, err
	}
	js, err := jobs.Open(cfg.Jobs.DBPath)
	if err != nil {
		return nil, err
	}
	coord, err := persist.NewCoordinator(emb, store, persist.Config{
		ProcessedDir: cfg.ProcessedDir,
		Workers:      cfg.Background.Workers,
		Timeout:      cfg.BackgroundTimeout(),
		Distance:     domain.ParseDistance(cfg.Qdrant.Distance),
	})
	if err != nil {
		js.Close()
		return nil, err
	}
	retriever := retrieval.NewAssembler(emb, store, retrieval.Config{
		Collection:      cfg.Qdrant.CollectionName,
		MaxContextChars: cfg.MaxContextChars,
		TopK:            cfg.Retrieval.TopK,
	})

	sessions := session.NewStore(cfg.SessionTTL(), 0)
	svc, err := service.New(service.Deps{
		Config:    cfg,
		Jobs:      js,
		Cache:     dedup.NewCache(store, cfg.Qdrant.VectorSize),
		Extractor: extract.NewRegistry(),
		Assistant: assistant,
		Persist:   coord,
		Retriever: retriever,
		Sessions:  sessions,
	})
	if err != nil {
		coord.Close()
		js.Close()
		return nil, err
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sessions.Run(sweepCtx, 0)

	logger.Info("Using embedding=%s vector_store=%s generator=%s collection=%s",
		cfg.Embedding.Type, cfg.VectorStore.Type, cfg.Generator.Type, cfg.Qdrant.CollectionName)
	return &App{
		Config:    cfg,
		Service:   svc,
		Store:     store,
		Embedder:  emb,
		Persist:   coord,
		Jobs:      js,
		Gate:      gate,
		Retriever: retriever,
		Sessions:  sessions,
		stopSweep: stopSweep,
	}, nil
}

// Close stops the session sweeper, waits for background persistence and
// closes the job database.
func (a *App) Close() error {
	if a.stopSweep != nil {
		a.stopSweep()
	}
	a.Persist.Close()
	return a.Jobs.Close()
}

func newEmbedder(cfg *config.AppConfig, gate *inference.Gate) (domain.Embedder, error) {
	ecfg := embedding.Config{
		HiddenSize:   cfg.EmbeddingHiddenSize,
		MaxChunkSize: cfg.MaxEmbeddingInputLength,
		ChunkPause:   cfg.Embedding.ChunkPause(),
	}
	switch strings.ToLower(cfg.Embedding.Type) {
	case "", "llama":
		client := llama.NewClient(llama.Config{
			BaseURL:  cfg.LlamaServer.BaseURL(),
			Endpoint: cfg.LlamaServer.EmbeddingEndpoint,
			Timeout:  cfg.LlamaServer.Timeout(),
			Gate:     gate,
		})
		return embedding.NewEmbedder(client, ecfg), nil
	case "hashing":
		raw, err := hashing.NewEmbedder(cfg.EmbeddingHiddenSize)
		if err != nil {
			return nil, err
		}
		ecfg.ChunkPause = 0
		return embedding.NewEmbedder(raw, ecfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding type %q", domain.ErrInvalidInput, cfg.Embedding.Type)
	}
}

func newAssistant(cfg *config.AppConfig, gate *inference.Gate) (domain.Assistant, error) {
	switch strings.ToLower(cfg.Generator.Type) {
	case "", "llama":
		client := llm.NewClient(llm.Config{
			BaseURL:  cfg.LlamaServer.BaseURL(),
			Endpoint: cfg.LlamaServer.Endpoint,
			Timeout:  cfg.LlamaServer.Timeout(),
			Params: llm.Params{
				NPredict: cfg.LlamaServer.NPredict,
				Seed:     cfg.LlamaServer.Seed,
				TopK:     cfg.LlamaServer.TopK,
				TopP:     cfg.LlamaServer.TopP,
			},
			Gate: gate,
		})
		return llm.NewChatBot(client), nil
	case "frequency":
		return summarizer.NewExtractive(), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator type %q", domain.ErrInvalidInput, cfg.Generator.Type)
	}
}

// Offline returns a configuration that runs without any external service.
// The job database lives at dbPath and processed files under processedDir.
func Offline(dbPath, processedDir string) *config.AppConfig {
	cfg := config.Default()
	cfg.Embedding.Type = "hashing"
	cfg.VectorStore.Type = "memory"
	cfg.Generator.Type = "frequency"
	cfg.EmbeddingHiddenSize = 256
	cfg.Qdrant.VectorSize = 256
	cfg.Jobs.DBPath = dbPath
	cfg.ProcessedDir = processedDir
	return cfg
}

package vectorstore

import (
	"fmt"
	"strings"
	"time"

	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/vectorstore/memory"
	"docintel/internal/vectorstore/qdrant"
)

// New builds the vector store selected by vector_store.type.
func New(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch strings.ToLower(cfg.VectorStore.Type) {
	case "", "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:     cfg.Qdrant.URL(),
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store type %q", domain.ErrInvalidInput, cfg.VectorStore.Type)
	}
}

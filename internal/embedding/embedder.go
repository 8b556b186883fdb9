package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"docintel/internal/chunker"
	"docintel/internal/domain"
	"docintel/internal/logger"
)

// Embedder turns text of any length into one vector of the configured hidden
// size. Long text is cut into fixed-size character chunks, each chunk is
// embedded separately and the chunk vectors are mean-pooled.
type Embedder struct {
	client     domain.RawEmbedder
	hiddenSize int
	chunker    *chunker.FixedSizeChunker
	limiter    *rate.Limiter
}

var _ domain.Embedder = (*Embedder)(nil)

// Config configures the chunked embedder.
type Config struct {
	// HiddenSize is the dimension of every returned vector.
	HiddenSize int
	// MaxChunkSize is the chunk length in characters.
	MaxChunkSize int
	// ChunkPause spaces consecutive chunk requests. Zero disables pacing.
	ChunkPause time.Duration
}

// NewEmbedder creates an embedder on top of a raw embedding client.
func NewEmbedder(client domain.RawEmbedder, cfg Config) *Embedder {
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = 4096
	}
	var limiter *rate.Limiter
	if cfg.ChunkPause > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.ChunkPause), 1)
	}
	return &Embedder{
		client:     client,
		hiddenSize: cfg.HiddenSize,
		chunker:    chunker.NewFixedSizeChunker(cfg.MaxChunkSize),
		limiter:    limiter,
	}
}

// Dimension returns the hidden size of produced vectors.
func (e *Embedder) Dimension() int { return e.hiddenSize }

// Embed returns the pooled embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	n, limit := chunker.Len(text), e.chunker.Size()
	if n <= limit {
		logger.Debug("Input text length (%d) is within allowed limit (%d).", n, limit)
		return e.embedChunk(ctx, text)
	}

	chunks := e.chunker.Split(text)
	logger.Debug("Input text length (%d) exceeds limit (%d); embedding %d chunks.", n, limit, len(chunks))

	vectors := make([][]float64, 0, len(chunks))
	for i, chunk := range chunks {
		if err := e.pace(ctx); err != nil {
			return nil, err
		}
		logger.Debug("Processing chunk %d of %d...", i+1, len(chunks))
		vec, err := e.embedChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		vectors = append(vectors, vec)
	}

	if err := checkConsistent(vectors); err != nil {
		return nil, err
	}
	pooled, err := MeanPool(vectors)
	if err != nil {
		return nil, err
	}
	logger.Debug("Aggregated embedding computed from %d chunks.", len(vectors))
	return pooled, nil
}

func (e *Embedder) embedChunk(ctx context.Context, chunk string) ([]float64, error) {
	raw, err := e.client.RawEmbedding(ctx, chunk)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, e.hiddenSize)
}

func (e *Embedder) pace(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return domain.TransportError("embedding pause", domain.ErrEmbeddingRequest, err)
	}
	return nil
}

func checkConsistent(vectors [][]float64) error {
	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			lengths := make([]int, len(vectors))
			for j, v := range vectors {
				lengths[j] = len(v)
			}
			logger.Error("Mismatch in embedding lengths among chunks: %v", lengths)
			return fmt.Errorf("%w: lengths %v", domain.ErrEmbeddingConsistency, lengths)
		}
	}
	return nil
}

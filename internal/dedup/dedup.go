// Package dedup recognizes documents that were already processed by the
// SHA-256 of their bytes and returns the text extracted the first time.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// ComputeHash returns the lowercase hex SHA-256 of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Cache looks up previously extracted text by content hash.
type Cache struct {
	store      domain.VectorStore
	vectorSize int

	mu    sync.Mutex
	sizes map[string]int
}

// NewCache creates a cache over store. The placeholder query vector takes
// the size of the searched collection; vectorSize is used only while that
// size cannot be read.
func NewCache(store domain.VectorStore, vectorSize int) *Cache {
	return &Cache{store: store, vectorSize: vectorSize, sizes: make(map[string]int)}
}

func (c *Cache) querySize(ctx context.Context, collection string) int {
	c.mu.Lock()
	size, ok := c.sizes[collection]
	c.mu.Unlock()
	if ok {
		return size
	}
	info, err := c.store.CollectionInfo(ctx, collection)
	if err != nil || info.Size <= 0 {
		return c.vectorSize
	}
	if info.Size != c.vectorSize {
		logger.Warn("Collection %q has vector size %d, configured size is %d; using the collection's.",
			collection, info.Size, c.vectorSize)
	}
	c.mu.Lock()
	c.sizes[collection] = info.Size
	c.mu.Unlock()
	return info.Size
}

func (c *Cache) forget(collection string) {
	c.mu.Lock()
	delete(c.sizes, collection)
	c.mu.Unlock()
}

// Lookup returns the extracted text stored for hash, or "" when the hash is
// unknown. Store failures are logged and reported as a miss.
func (c *Cache) Lookup(ctx context.Context, hash, collection string) string {
	query := make([]float64, c.querySize(ctx, collection))
	hits, err := c.store.Search(ctx, collection, query, 1, domain.FileHashFilter(hash))
	if err != nil {
		c.forget(collection)
		logger.Error("Failed to retrieve text for hash '%s': %v", hash, err)
		return ""
	}
	if len(hits) > 0 {
		if text := hits[0].Text(); text != "" {
			logger.Info("Extracted text retrieved for file hash '%s'.", hash)
			return text
		}
	}
	logger.Info("No extracted text found for file hash '%s'.", hash)
	return ""
}

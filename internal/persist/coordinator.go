// Package persist stores processed documents after the response that needed
// them has already been sent: the upload is written to the processed
// directory, embedded and upserted as one point.
package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// Task describes one document to persist.
type Task struct {
	// ID becomes both the point id and the stored file name prefix.
	ID         string
	Bytes      []byte
	Hash       string
	Filename   string
	Text       string
	Collection string
}

// Coordinator runs persistence tasks on a bounded worker pool. Each task is
// attempted exactly once; failures are logged and never reach the submitter.
type Coordinator struct {
	pool         *ants.Pool
	wg           sync.WaitGroup
	embedder     domain.Embedder
	store        domain.VectorStore
	processedDir string
	distance     domain.Distance
	timeout      time.Duration
}

// Config configures a Coordinator.
type Config struct {
	ProcessedDir string
	Workers      int
	// Timeout bounds a whole task, independent of the submitting request.
	Timeout  time.Duration
	Distance domain.Distance
}

// NewCoordinator creates a coordinator with its own worker pool.
func NewCoordinator(embedder domain.Embedder, store domain.VectorStore, cfg Config) (*Coordinator, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = "processed_dir"
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("Background persistence task panicked: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence worker pool: %w", err)
	}
	return &Coordinator{
		pool:         pool,
		embedder:     embedder,
		store:        store,
		processedDir: cfg.ProcessedDir,
		distance:     cfg.Distance,
		timeout:      cfg.Timeout,
	}, nil
}

// Submit schedules task in the background and returns immediately. The task
// keeps the values of ctx but not its cancellation or deadline. An error is
// returned only when the task could not be scheduled.
func (c *Coordinator) Submit(ctx context.Context, task Task) error {
	detached := context.WithoutCancel(ctx)
	c.wg.Add(1)
	err := c.pool.Submit(func() {
		defer c.wg.Done()
		taskCtx, cancel := context.WithTimeout(detached, c.timeout)
		defer cancel()
		if err := c.Save(taskCtx, task); err != nil {
			logger.Error("Error in background embedding save task for %q: %v", task.Filename, err)
		}
	})
	if err != nil {
		c.wg.Done()
		return fmt.Errorf("failed to submit persistence task: %w", err)
	}
	logger.Info("Launched background task for saving %q to the vector store.", task.Filename)
	return nil
}

// Save persists task synchronously: write the file, embed the text, ensure
// the collection exists with the vector's size and upsert one point.
func (c *Coordinator) Save(ctx context.Context, task Task) error {
	path, err := SaveFile(c.processedDir, task.ID+"_"+task.Filename, task.Bytes)
	if err != nil {
		return err
	}
	logger.Info("Saved processed file to disk: %s", path)

	vec, err := c.embedder.Embed(ctx, task.Text)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	logger.Info("Generated embedding vector of length %d.", len(vec))

	if err := c.store.EnsureCollection(ctx, task.Collection, len(vec), c.distance); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	rec := domain.DocumentRecord{
		ID:            task.ID,
		Vector:        vec,
		FileHash:      task.Hash,
		ExtractedText: task.Text,
		Filename:      task.Filename,
	}
	if err := c.store.Upsert(ctx, task.Collection, []domain.Point{rec.Point()}); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	logger.Info("Stored document vector with id %s.", task.ID)
	return nil
}

// Wait blocks until every submitted task has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Running returns the number of tasks currently executing.
func (c *Coordinator) Running() int {
	return c.pool.Running()
}

// Close waits for in-flight tasks and releases the pool.
func (c *Coordinator) Close() {
	c.wg.Wait()
	c.pool.Release()
}

// SaveFile writes data to dir/name, creating dir when needed. Directory
// components in name are discarded.
func SaveFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

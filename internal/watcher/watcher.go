// Package watcher ingests documents dropped into a folder tree.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docintel/internal/logger"
	"docintel/internal/service"
)

const DefaultDebounce = 500 * time.Millisecond

// Ingester stores files in the knowledge base.
type Ingester interface {
	IngestPaths(ctx context.Context, paths ...string) (service.IngestResult, error)
}

// Watcher ingests files once they stop changing for the debounce period.
type Watcher struct {
	ingester Ingester
	allowed  func(path string) bool
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// New creates a watcher. allowed filters files by name; nil accepts all.
func New(ingester Ingester, allowed func(path string) bool, debounce time.Duration) *Watcher {
	if allowed == nil {
		allowed = func(string) bool { return true }
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		ingester: ingester,
		allowed:  allowed,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}
}

// Run ingests what root already holds when initial is set, then watches root
// and its subdirectories until ctx is canceled.
func (w *Watcher) Run(ctx context.Context, root string, initial bool) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	defer w.stopTimers()

	if err := addTree(fw, root); err != nil {
		return err
	}
	if initial {
		w.ingest(ctx, root)
	}
	logger.Info("Watching %s for new documents", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watch error: %v", err)
		case path := <-w.ready:
			w.ingest(ctx, path)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
		logger.Debug("Ignoring removal of %s; stored documents are kept", ev.Name)
		return
	default:
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := addTree(fw, ev.Name); err != nil {
				logger.Error("Failed to watch %s: %v", ev.Name, err)
				return
			}
			w.ingest(ctx, ev.Name)
		}
		return
	}
	if w.allowed(ev.Name) {
		w.schedule(ev.Name)
	}
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ready <- path
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	res, err := w.ingester.IngestPaths(ctx, path)
	if err != nil {
		logger.Error("Failed to ingest %s: %v", path, err)
		return
	}
	logger.Info("Ingested %d new document(s) from %s (job %d)", res.IngestedCount, path, res.JobID)
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

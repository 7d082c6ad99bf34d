// Package watcher ingests PDF and text files as they appear in a directory tree.
//
// File system events are collected with fsnotify and flushed to the ingestion
// service in batches once the tree has been quiet for the debounce interval,
// so an editor saving a file several times produces one ingestion.
// Record ids are derived from the source name, offset and text, so when a
// changed file is ingested again its unchanged chunks are replaced in place
// and changed chunks are added next to the old ones, which stay in the store.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is the quiet period before pending files are ingested.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned when Run is called on a closed watcher.
var ErrClosed = errors.New("watcher: closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialScan ingests the files already present before watching.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) {
		w.initialScan = enabled
	}
}

// WithReportHandler receives the report of every flushed batch.
func WithReportHandler(fn func(*domain.IngestReport, error)) Option {
	return func(w *Watcher) {
		w.onReport = fn
	}
}

// Watcher feeds new and changed files under a directory to the ingest service.
type Watcher struct {
	root        string
	ingest      driving.IngestService
	debounce    time.Duration
	initialScan bool
	onReport    func(*domain.IngestReport, error)

	mu     sync.Mutex
	closed bool
}

// New creates a watcher for the directory tree rooted at root.
func New(root string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		ingest:   ingest,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	existing, err := w.addTree(fsw, w.root)
	if err != nil {
		return err
	}
	logger.Info("Watching %s", w.root)

	pending := make(map[string]struct{})
	if w.initialScan {
		for _, path := range existing {
			pending[path] = struct{}{}
		}
		w.flush(ctx, pending)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.isNewDir(event) {
				files, err := w.addTree(fsw, event.Name)
				if err != nil {
					logger.Warn("Watching %s: %v", event.Name, err)
				}
				for _, path := range files {
					pending[path] = struct{}{}
				}
				timer.Reset(w.debounce)
				continue
			}
			if path := w.handleFsEvent(event); path != "" {
				pending[path] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			w.flush(ctx, pending)
		}
	}
}

// Close stops future Run calls.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// addTree watches dir and every non-hidden directory below it.
// It returns the supported files found on the way.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		if d.Type().IsRegular() && extractors.IsSupportedPath(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) isNewDir(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) || isHidden(filepath.Base(event.Name)) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

// handleFsEvent returns the path to ingest for an event, or "" to ignore it.
// Removals are only logged since indexed records outlive their files.
func (w *Watcher) handleFsEvent(event fsnotify.Event) string {
	if isHidden(w.sourceName(event.Name)) {
		return ""
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return ""
		}
		if !extractors.IsSupportedPath(event.Name) {
			logger.Debug("Ignoring %s: unsupported file type", event.Name)
			return ""
		}
		return event.Name

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if extractors.IsSupportedPath(event.Name) {
			logger.Info("%s removed; its chunks stay indexed", event.Name)
		}
	}
	return ""
}

// flush ingests and clears the pending files as one batch.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}

	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
		delete(pending, path)
	}
	sort.Strings(paths)

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := extractors.LoadDocument(path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		doc.Filename = w.sourceName(path)
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return
	}

	logger.Info("Ingesting %d changed files", len(docs))
	report, err := w.ingest.Ingest(ctx, docs)
	if err != nil {
		logger.Error("Ingesting %d files failed: %v", len(docs), err)
	} else {
		logger.Info("Indexed %d chunks from %d files", report.ChunksIndexed, report.DocumentsIndexed)
	}
	if w.onReport != nil {
		w.onReport(report, err)
	}
}

// sourceName is the path relative to the root, with forward slashes.
// Two files with the same base name in different folders stay distinct.
func (w *Watcher) sourceName(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// isHidden reports whether any element of the path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}

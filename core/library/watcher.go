package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"HipHopLab/logger"
	"HipHopLab/model"
)

// AudioExtensions are the file types picked up from the import folder.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
}

// FileImporter imports one file's bytes.
type FileImporter interface {
	Import(ctx context.Context, filename string, data []byte) (*model.Track, error)
}

// Watcher imports audio files dropped into a folder. A file is imported once
// it has stopped changing for the settle delay.
type Watcher struct {
	dir      string
	settle   time.Duration
	importer FileImporter

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]bool
	wg      sync.WaitGroup
}

func NewWatcher(dir string, settle time.Duration, importer FileImporter) *Watcher {
	if settle <= 0 {
		settle = time.Second
	}
	return &Watcher{
		dir:      dir,
		settle:   settle,
		importer: importer,
		pending:  make(map[string]*time.Timer),
		seen:     make(map[string]bool),
	}
}

// Run watches the folder until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating import dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("watching import folder", logger.String("dir", w.dir))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !AudioExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("import watcher error", logger.ErrorField(err))
		}
	}
}

// schedule (re)arms the settle timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[path] {
		return
	}
	if t, ok := w.pending[path]; ok {
		// a timer that already fired is about to import the file
		if t.Stop() {
			t.Reset(w.settle)
		}
		return
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.seen[path] = true
		w.mu.Unlock()
		w.importFile(ctx, path)
	})
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	if _, err := w.importer.Import(ctx, filepath.Base(path), data); err != nil {
		logger.Error("failed to import dropped file", logger.String("path", path), logger.ErrorField(err))
	}
}

// stop cancels timers that have not fired and waits for running imports.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

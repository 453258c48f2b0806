// Package watch monitors routine source files and triggers a callback
// when they change. Rapid bursts of filesystem events, as editors
// produce on save, collapse into a single callback.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher monitors a source directory tree for changes to files
// matching a pattern.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	dir      string
	pattern  string
	onChange func(paths []string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}

	debounce time.Duration
	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a watcher over dir. onChange receives the sorted set of
// changed paths, at most once per debounce window.
func New(dir, pattern string, log *zap.Logger, onChange func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		log:      log,
		dir:      dir,
		pattern:  pattern,
		onChange: onChange,
		pending:  make(map[string]struct{}),
		debounce: 200 * time.Millisecond,
		stopped:  make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins dispatching events in
// a background goroutine.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", zap.String("dir", path))
		return nil
	})
	if err != nil {
		return err
	}

	go w.run()
	return nil
}

// Stop ends watching. Pending debounced changes are discarded.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopped)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopped:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories join the watch set so nested sources are seen.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	match, err := filepath.Match(w.pattern, filepath.Base(event.Name))
	if err != nil || !match {
		return
	}

	w.add(event.Name)
}

// add records a changed path and (re)arms the debounce timer.
func (w *Watcher) add(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush delivers the accumulated paths to the callback.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)

	select {
	case <-w.stopped:
		return
	default:
	}
	w.onChange(paths)
}

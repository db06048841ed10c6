package media

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches tab directories, invalidates changed files in the cache and
// reports which directory changed.
type Watcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	cache    *Cache
	dirs     map[string]bool
	onChange func(dir string)
	done     chan struct{}
	running  bool
}

// NewWatcher creates a directory watcher. onChange may be nil.
func NewWatcher(cache *Cache, onChange func(dir string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		logger:   logger,
		watcher:  fsw,
		cache:    cache,
		dirs:     make(map[string]bool),
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// SetDirs replaces the set of watched directories.
func (w *Watcher) SetDirs(dirs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[d] = true
		if w.dirs[d] {
			continue
		}
		if err := w.watcher.Add(d); err != nil {
			w.logger.Debug("failed to watch directory", "dir", d, "error", err)
			continue
		}
		w.dirs[d] = true
	}
	for d := range w.dirs {
		if !want[d] {
			_ = w.watcher.Remove(d)
			delete(w.dirs, d)
		}
	}
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.watch()
}

// watch is the main watch loop.
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !Supported(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug("audio file changed", "path", event.Name, "op", event.Op.String())
				if w.cache != nil {
					w.cache.Invalidate(event.Name)
				}
				if w.onChange != nil {
					w.onChange(filepath.Dir(event.Name))
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("media watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return w.watcher.Close()
	}
	w.running = false
	close(w.done)
	return w.watcher.Close()
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vk/apispec/internal/ctxlog"
)

// Config tunes a Watcher.
type Config struct {
	Debounce    time.Duration
	MaxBatch    int
	Ignore      []string
	WatchHidden bool
}

// DefaultConfig returns the settings used by the docs server.
func DefaultConfig() Config {
	return Config{
		Debounce: 250 * time.Millisecond,
		MaxBatch: 100,
		Ignore: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/*.swp",
			"**/*~",
		},
	}
}

// Watcher watches files and directories and hands debounced batches of
// events to a callback.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	mu    sync.Mutex
	files map[string]bool
	trees []string
}

// New creates a watcher. onChange runs on a timer goroutine, one batch at a
// time per quiet window.
func New(config Config, onChange func([]Event)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		files:     map[string]bool{},
	}
	w.debouncer = NewDebouncer(config.Debounce, config.MaxBatch, onChange)
	return w, nil
}

// Add watches path. A file is watched through its directory, so the watch
// survives editors that save by renaming a temporary file over it; events
// for the directory's other files are dropped. A directory is watched
// recursively.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.mu.Lock()
		w.files[abs] = true
		w.mu.Unlock()
		return w.fsWatcher.Add(filepath.Dir(abs))
	}
	if err := w.fsWatcher.Add(abs); err != nil {
		return err
	}
	w.mu.Lock()
	w.trees = append(w.trees, abs)
	w.mu.Unlock()
	return w.walkAndAdd(abs)
}

func (w *Watcher) walkAndAdd(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if !entry.IsDir() || w.shouldIgnore(full) {
			continue
		}
		if err := w.fsWatcher.Add(full); err != nil {
			continue
		}
		_ = w.walkAndAdd(full)
	}
	return nil
}

// Run delivers events until ctx is done, then flushes what is pending and
// releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.Component(ctx, "watcher")
	logger.Debug("File watcher started.")
	defer func() {
		w.debouncer.Stop()
		_ = w.fsWatcher.Close()
		logger.Debug("File watcher stopped.")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			logger.Debug("File event.", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.shouldIgnore(event.Name) {
					if err := w.fsWatcher.Add(event.Name); err == nil {
						_ = w.walkAndAdd(event.Name)
					}
				}
			}

			if e := w.convert(event); e != nil {
				w.debouncer.Add(*e)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (w *Watcher) convert(event fsnotify.Event) *Event {
	if !w.wanted(event.Name) {
		return nil
	}

	var t EventType
	switch {
	case event.Has(fsnotify.Create):
		t = EventCreate
	case event.Has(fsnotify.Write):
		t = EventModify
	case event.Has(fsnotify.Remove):
		t = EventDelete
	case event.Has(fsnotify.Rename):
		t = EventRename
	default:
		return nil
	}
	return &Event{Path: event.Name, Type: t, Time: time.Now()}
}

// wanted filters events: ignore globs always apply, and directories watched
// on behalf of a single file only report that file.
func (w *Watcher) wanted(path string) bool {
	if w.shouldIgnore(path) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] {
		return true
	}
	for _, root := range w.trees {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if !w.config.WatchHidden && strings.HasPrefix(base, ".") {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.config.Ignore {
		if match, _ := doublestar.Match(pattern, slashed); match {
			return true
		}
	}
	return false
}

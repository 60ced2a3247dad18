// Package filewatcher watches a source tree and reports changed files.
package filewatcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a debounced change of one file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Op, e.Path)
}

// FileWatcher watches a directory tree for file changes. Directories
// created while watching are added as they appear.
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	absRoot    string
	ignored    []string
	extensions []string
	patterns   []string
	logger     *slog.Logger
	debounce   time.Duration

	callbacks   []func(Event)
	callbacksMu sync.RWMutex

	changes   map[string]pendingChange
	changesMu sync.Mutex

	stopOnce sync.Once
	done     chan struct{}
}

type pendingChange struct {
	op   fsnotify.Op
	seen time.Time
}

// New creates a new FileWatcher
func New(opts ...Option) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  watcher,
		root:     ".",
		logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		debounce: 300 * time.Millisecond,
		changes:  make(map[string]pendingChange),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(fw)
	}

	fw.absRoot, err = filepath.Abs(fw.root)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("getting absolute root path: %w", err)
	}

	return fw, nil
}

// AddCallback adds a callback to be called when files change
func (fw *FileWatcher) AddCallback(callback func(Event)) {
	fw.callbacksMu.Lock()
	defer fw.callbacksMu.Unlock()
	fw.callbacks = append(fw.callbacks, callback)
}

// Start adds the root and its subdirectories and begins watching.
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Watching directory", "dir", fw.absRoot)
	if err := fw.addTree(fw.absRoot); err != nil {
		return fmt.Errorf("watching app root recursively: %w", err)
	}

	go fw.watchLoop()

	return nil
}

// Stop stops watching for file changes. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
	})
	return err
}

// addTree adds dir and every directory below it that is not ignored.
func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Vanished before we got to it.
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.isIgnoredFolder(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("adding %s: %w", path, err)
		}
		fw.logger.Debug("Watching folder", "dir", path)
		return nil
	})
}

func (fw *FileWatcher) watchLoop() {
	ticker := time.NewTicker(fw.tick())
	defer ticker.Stop()

	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		case <-ticker.C:
			fw.processChanges()
		}
	}
}

func (fw *FileWatcher) tick() time.Duration {
	t := fw.debounce / 3
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	path := event.Name
	if fw.isIgnoredFolder(path) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := fw.addTree(path); err != nil {
				fw.logger.Warn("Unable to watch new folder", "dir", path, "error", err)
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod || !fw.isWatchedFile(path) {
		return
	}

	fw.changesMu.Lock()
	pc := fw.changes[path]
	fw.changes[path] = pendingChange{op: pc.op | event.Op, seen: time.Now()}
	fw.changesMu.Unlock()
}

// processChanges reports files that stayed quiet for the debounce time.
func (fw *FileWatcher) processChanges() {
	now := time.Now()
	var ready []Event

	fw.changesMu.Lock()
	for file, pc := range fw.changes {
		if now.Sub(pc.seen) >= fw.debounce {
			ready = append(ready, Event{Path: file, Op: pc.op})
			delete(fw.changes, file)
		}
	}
	fw.changesMu.Unlock()

	for _, ev := range ready {
		fw.logger.Debug("File changed", "file", ev.Path, "op", ev.Op.String())
		fw.notifyCallbacks(ev)
	}
}

func (fw *FileWatcher) notifyCallbacks(ev Event) {
	fw.callbacksMu.RLock()
	defer fw.callbacksMu.RUnlock()

	for _, callback := range fw.callbacks {
		callback(ev)
	}
}

func (fw *FileWatcher) isIgnoredFolder(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, folder := range fw.ignored {
		dir := filepath.Join(fw.absRoot, folder)
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isWatchedFile reports whether path matches an extension or a pattern. With
// neither configured every file is watched.
func (fw *FileWatcher) isWatchedFile(path string) bool {
	if len(fw.extensions) == 0 && len(fw.patterns) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, e := range fw.extensions {
		if e == ext {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range fw.patterns {
		matched, err := filepath.Match(pattern, base)
		if err != nil {
			fw.logger.Error("Pattern match error", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}

	return false
}

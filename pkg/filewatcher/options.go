package filewatcher

import (
	"log/slog"
	"strings"
	"time"
)

// Option configures a FileWatcher
type Option func(*FileWatcher)

// WithLogger sets the logger for the file watcher
func WithLogger(logger *slog.Logger) Option {
	return func(fw *FileWatcher) {
		if logger != nil {
			fw.logger = logger
		}
	}
}

// WithRoot sets the directory watched recursively.
func WithRoot(root string) Option {
	return func(fw *FileWatcher) {
		if root != "" {
			fw.root = root
		}
	}
}

// WithIgnoredFolders skips folders, given relative to the root, and
// everything below them.
func WithIgnoredFolders(folders []string) Option {
	return func(fw *FileWatcher) {
		fw.ignored = folders
	}
}

// WithExtensions limits events to files with one of the extensions (".go").
func WithExtensions(exts []string) Option {
	return func(fw *FileWatcher) {
		fw.extensions = fw.extensions[:0]
		for _, e := range exts {
			if e = strings.TrimSpace(e); e != "" {
				fw.extensions = append(fw.extensions, e)
			}
		}
	}
}

// WithPatterns sets glob patterns matched against the file's base name.
// A file is watched when it matches an extension or a pattern.
func WithPatterns(patterns []string) Option {
	return func(fw *FileWatcher) {
		fw.patterns = patterns
	}
}

// WithDebounce sets how long a file must stay quiet before its change is reported.
func WithDebounce(d time.Duration) Option {
	return func(fw *FileWatcher) {
		if d > 0 {
			fw.debounce = d
		}
	}
}

package hotreload

import (
	"errors"
	"log/slog"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
	"github.com/lightforgemedia/go-refresh/pkg/filewatcher"
)

// Errors
var (
	ErrNoBroker      = errors.New("no broker provided")
	ErrNoFileWatcher = errors.New("no file watcher provided")
)

// Option configures a HotReload service
type Option func(*HotReload)

// WithLogger sets the logger for the hot reload service
func WithLogger(logger *slog.Logger) Option {
	return func(hr *HotReload) {
		if logger != nil {
			hr.logger = logger
		}
	}
}

// WithBroker sets the broker change events are published on
func WithBroker(b *broker.Broker) Option {
	return func(hr *HotReload) {
		hr.broker = b
	}
}

// WithFileWatcher sets the file watcher for the hot reload service
func WithFileWatcher(watcher *filewatcher.FileWatcher) Option {
	return func(hr *HotReload) {
		hr.watcher = watcher
	}
}

// WithManagerID tags published events with the owning manager.
func WithManagerID(id string) Option {
	return func(hr *HotReload) {
		hr.managerID = id
	}
}

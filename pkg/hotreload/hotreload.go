// Package hotreload reloads pages when assets change that need no rebuild,
// such as templates and stylesheets.
package hotreload

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
	"github.com/lightforgemedia/go-refresh/pkg/filewatcher"
)

// HotReload turns file changes into broker.TopicAssetsChanged events.
type HotReload struct {
	broker    *broker.Broker
	watcher   *filewatcher.FileWatcher
	logger    *slog.Logger
	managerID string

	changes atomic.Int64
}

// New creates a new HotReload service
func New(opts ...Option) (*HotReload, error) {
	hr := &HotReload{
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	for _, opt := range opts {
		opt(hr)
	}

	if hr.broker == nil {
		return nil, ErrNoBroker
	}
	if hr.watcher == nil {
		return nil, ErrNoFileWatcher
	}

	return hr, nil
}

// Start starts the hot reload service
func (hr *HotReload) Start() error {
	hr.watcher.AddCallback(hr.handleFileChange)

	if err := hr.watcher.Start(); err != nil {
		return err
	}

	hr.logger.Info("Hot reload service started")
	return nil
}

// Stop stops the hot reload service
func (hr *HotReload) Stop() error {
	if err := hr.watcher.Stop(); err != nil {
		return err
	}

	hr.logger.Info("Hot reload service stopped")
	return nil
}

// Changes returns how many asset changes were published.
func (hr *HotReload) Changes() int64 {
	return hr.changes.Load()
}

func (hr *HotReload) handleFileChange(ev filewatcher.Event) {
	hr.logger.Info("Asset changed, triggering hot reload", "file", ev.Path)

	err := hr.broker.Publish(broker.Event{
		Topic:     broker.TopicAssetsChanged,
		ManagerID: hr.managerID,
		Path:      ev.Path,
		Op:        ev.Op.String(),
	})
	if err != nil {
		hr.logger.Warn("Publishing asset change failed", "file", ev.Path, "error", err)
		return
	}
	hr.changes.Add(1)
}

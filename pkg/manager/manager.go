// Package manager watches an application's sources, rebuilds it on change,
// restarts the process and tells connected pages to reload.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
	"github.com/lightforgemedia/go-refresh/pkg/broker/nats"
	"github.com/lightforgemedia/go-refresh/pkg/filewatcher"
	"github.com/lightforgemedia/go-refresh/pkg/hotreload"
	"github.com/lightforgemedia/go-refresh/pkg/reloadserver"
)

// ErrNoBuildableSource ends Start when the build target has nothing to build.
var ErrNoBuildableSource = errors.New("no buildable Go source files")

// opInit marks the initial build request.
const opInit = "init"

// BuildRequest asks for a rebuild because of a change at Path.
type BuildRequest struct {
	Path string
	Op   string
}

// Manager drives the watch, build and restart cycle for one application.
type Manager struct {
	*Config
	ID string

	logger    *slog.Logger
	broker    *broker.Broker
	ownBroker bool

	// one scheduled build after the current one, to coalesce bursts of changes
	buildRequests chan BuildRequest
	restart       chan struct{}
	cancel        context.CancelCauseFunc

	mu     sync.Mutex
	reload *reloadserver.Server
}

// New creates a manager for c. Nothing runs until Start.
func New(c *Config, opts ...Option) *Manager {
	m := &Manager{
		Config:        c,
		ID:            uuid.NewString(),
		logger:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
		buildRequests: make(chan BuildRequest, 1),
		restart:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("manager", m.ID[:8])
	if m.broker == nil {
		m.broker = broker.New(16, m.logger)
		m.ownBroker = true
	}
	return m
}

// Broker returns the bus lifecycle events are published on.
func (m *Manager) Broker() *broker.Broker {
	return m.broker
}

// ReloadServer returns the live reload server while Start runs with live
// reload enabled, nil otherwise.
func (m *Manager) ReloadServer() *reloadserver.Server {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reload
}

// Start runs until ctx is done or the build target turns out to have no
// buildable sources, in which case ErrNoBuildableSource is returned.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	m.cancel = cancel
	defer cancel(nil)
	if m.ownBroker {
		defer m.broker.Close()
	}

	w, err := filewatcher.New(
		filewatcher.WithLogger(m.logger),
		filewatcher.WithRoot(m.AppRoot),
		filewatcher.WithIgnoredFolders(m.IgnoredFolders),
		filewatcher.WithExtensions(m.IncludedExtensions),
		filewatcher.WithPatterns(m.IncludedPatterns),
		filewatcher.WithDebounce(watchDebounce),
	)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := m.startLiveReload(ctx); err != nil {
		return err
	}
	defer m.stopReloadServer()

	hr, err := m.startHotReload()
	if err != nil {
		return err
	}
	if hr != nil {
		defer hr.Stop()
	}

	if m.NATSURL != "" {
		f, err := nats.New(nats.Options{URL: m.NATSURL, Logger: m.logger})
		if err != nil {
			return err
		}
		defer f.Close()
		if err := f.Attach(ctx, m.broker); err != nil {
			return err
		}
	}

	// Process build requests sequentially
	go func() {
		for {
			select {
			case req := <-m.buildRequests:
				m.drainBuildRequests(ctx, req)
				if err := m.build(ctx, req); err != nil && ctx.Err() == nil {
					m.logger.Error("Build error occurred", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	m.requestBuild(BuildRequest{Path: m.AppRoot, Op: opInit})

	if !m.Debug {
		w.AddCallback(func(ev filewatcher.Event) {
			m.requestBuild(BuildRequest{Path: ev.Path, Op: ev.Op.String()})
		})
	}
	if err := w.Start(); err != nil {
		return err
	}

	m.runner(ctx)

	if cause := context.Cause(ctx); errors.Is(cause, ErrNoBuildableSource) {
		return cause
	}
	return nil
}

func (m *Manager) publish(ev broker.Event) {
	ev.ManagerID = m.ID
	if err := m.broker.Publish(ev); err != nil && !errors.Is(err, broker.ErrClosed) {
		m.logger.Warn("Publishing event failed", "topic", ev.Topic, "error", err)
	}
}

func (m *Manager) startLiveReload(ctx context.Context) error {
	if !m.LiveReload {
		return nil
	}

	s := reloadserver.New(
		reloadserver.WithLogger(m.logger),
		reloadserver.WithAddr(m.LiveReloadAddr),
	)
	if err := s.Start(); err != nil {
		return err
	}

	m.mu.Lock()
	m.reload = s
	m.mu.Unlock()

	return m.broker.Subscribe(ctx, func(ctx context.Context, ev broker.Event) {
		if ev.Topic == broker.TopicAssetsChanged {
			// The process keeps running, no need to wait for it.
			s.NotifyRestart()
			return
		}
		m.notifyLiveReloadRestart(ctx)
	}, broker.TopicRestart, broker.TopicAssetsChanged)
}

// startHotReload watches ReloadPatterns. Matching files reload pages without
// a rebuild.
func (m *Manager) startHotReload() (*hotreload.HotReload, error) {
	if !m.LiveReload || len(m.ReloadPatterns) == 0 {
		return nil, nil
	}

	fw, err := filewatcher.New(
		filewatcher.WithLogger(m.logger),
		filewatcher.WithRoot(m.AppRoot),
		filewatcher.WithIgnoredFolders(m.IgnoredFolders),
		filewatcher.WithPatterns(m.ReloadPatterns),
		filewatcher.WithDebounce(watchDebounce),
	)
	if err != nil {
		return nil, err
	}

	hr, err := hotreload.New(
		hotreload.WithLogger(m.logger),
		hotreload.WithBroker(m.broker),
		hotreload.WithFileWatcher(fw),
		hotreload.WithManagerID(m.ID),
	)
	if err != nil {
		fw.Stop()
		return nil, err
	}
	if err := hr.Start(); err != nil {
		fw.Stop()
		return nil, err
	}
	return hr, nil
}

func (m *Manager) stopReloadServer() {
	m.mu.Lock()
	s := m.reload
	m.reload = nil
	m.mu.Unlock()
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		m.logger.Warn("liveReload: Stopping server failed", "error", err)
	}
}

// liveReloadEnv is handed to the process so it can embed the script.
func (m *Manager) liveReloadEnv() []string {
	s := m.ReloadServer()
	if s == nil {
		return nil
	}
	return s.Env()
}

// Package refresh rebuilds and restarts a Go application on change and
// reloads the pages that show it.
//
// The live reload client lives in pkg/livereload, the server side in
// pkg/reloadserver and the build/restart runner in pkg/manager. This package
// re-exports the types most programs need.
package refresh

import (
	"context"

	"github.com/lightforgemedia/go-refresh/assets"
	"github.com/lightforgemedia/go-refresh/pkg/livereload"
	"github.com/lightforgemedia/go-refresh/pkg/manager"
	"github.com/lightforgemedia/go-refresh/pkg/reloadserver"
)

// Re-export core types
type (
	Client       = livereload.Client
	ClientOption = livereload.Option
	Reloader     = livereload.Reloader
	ReloadFunc   = livereload.ReloadFunc
	Dialer       = livereload.Dialer
	Conn         = livereload.Conn
	Event        = livereload.Event
	State        = livereload.State

	Server       = reloadserver.Server
	ServerOption = reloadserver.Option
	URLs         = reloadserver.URLs

	Config  = manager.Config
	Manager = manager.Manager
)

// Re-export error types
var (
	ErrAlreadyStarted    = livereload.ErrAlreadyStarted
	ErrNotStarted        = livereload.ErrNotStarted
	ErrUnsupportedScheme = livereload.ErrUnsupportedScheme
	ErrConfigNotExist    = manager.ErrConfigNotExist
	ErrNoBuildableSource = manager.ErrNoBuildableSource
)

// Re-export constants
const (
	DefaultEventName  = livereload.DefaultEventName
	DefaultRetryDelay = livereload.DefaultRetryDelay

	StateDisconnected = livereload.StateDisconnected
	StateConnecting   = livereload.StateConnecting
	StateConnected    = livereload.StateConnected

	EnvSSEURL    = assets.EnvSSEURL
	EnvSSEEvent  = assets.EnvSSEEvent
	EnvWSURL     = assets.EnvWSURL
	EnvScriptURL = assets.EnvScriptURL
)

// NewClient creates a live reload client for url.
func NewClient(url string, opts ...ClientOption) *Client {
	return livereload.New(url, opts...)
}

// Connect creates a client that reloads r and starts it.
func Connect(ctx context.Context, url string, r Reloader, opts ...ClientOption) (*Client, error) {
	opts = append([]ClientOption{livereload.WithReloader(r)}, opts...)
	c := livereload.New(url, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewServer creates a live reload server.
func NewServer(opts ...ServerOption) *Server {
	return reloadserver.New(opts...)
}

// NewManager creates a build/restart runner for c.
func NewManager(c *Config, opts ...manager.Option) *Manager {
	return manager.New(c, opts...)
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() *Config {
	return manager.DefaultConfig()
}

// LoadConfig loads path, or the first default config file found.
func LoadConfig(path string) (*Config, error) {
	return manager.LoadConfig(path)
}

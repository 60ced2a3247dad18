package reloadserver

import (
	"log/slog"

	"github.com/lightforgemedia/go-refresh/pkg/livereload"
)

// Options configures the live reload server
type Options struct {
	// Addr is the listen address used by Start. Default: "127.0.0.1:0"
	Addr string

	// EventName is the notification sent on restart.
	// Default: livereload.DefaultEventName
	EventName string

	// StreamID is the server-sent events stream. Default: "refresh"
	StreamID string

	// WSPath is where the WebSocket endpoint is mounted. Default: "/ws"
	WSPath string

	// ScriptPath is where the browser script is served. Default: "/reload.js"
	ScriptPath string
}

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		Addr:       "127.0.0.1:0",
		EventName:  livereload.DefaultEventName,
		StreamID:   "refresh",
		WSPath:     "/ws",
		ScriptPath: "/reload.js",
	}
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr sets the address Start listens on
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.options.Addr = addr
		}
	}
}

// WithEventName sets the restart notification name
func WithEventName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.options.EventName = name
		}
	}
}

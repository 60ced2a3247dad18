// Package livereload keeps a development page connected to a refresh server
// and reloads it when the server announces a restart.
//
// A Client holds at most one server-push connection at a time. Transport
// failures close the connection and a new one is attempted after a fixed
// delay (5s by default). A restart notification reloads the page through the
// configured Reloader and ends the client, the same way a browser page stops
// running its scripts once it starts reloading.
package livereload

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultEventName is the notification sent by the refresh server after
	// the supervised process was restarted.
	DefaultEventName = "refresh-restart"

	// DefaultRetryDelay is the fixed delay between a transport error and the
	// next connection attempt.
	DefaultRetryDelay = 5 * time.Second
)

// Errors
var (
	ErrAlreadyStarted    = errors.New("livereload: client already started")
	ErrNotStarted        = errors.New("livereload: client not started")
	ErrUnsupportedScheme = errors.New("livereload: unsupported url scheme")
	ErrStreamClosed      = errors.New("livereload: stream closed by server")
	ErrConnClosed        = errors.New("livereload: connection closed")
)

// Event is a single named notification read from a connection.
type Event struct {
	ID   string
	Name string
	Data string
}

// Reloader reloads the page the client is attached to.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadFunc adapts a function to the Reloader interface.
type ReloadFunc func(ctx context.Context) error

// Reload calls f(ctx).
func (f ReloadFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

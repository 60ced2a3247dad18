package livereload

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Dialer opens connection handles to a refresh server.
type Dialer interface {
	// Dial returns once the server accepted the stream, or with the error
	// that prevented it.
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a single server-push connection handle.
type Conn interface {
	// Next blocks until the next event arrives or the stream fails.
	Next(ctx context.Context) (Event, error)
	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial calls f(ctx, url).
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// DialerFor picks a transport from the URL scheme: http and https use
// server-sent events, ws and wss use a WebSocket.
func DialerFor(rawURL string) (Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing live reload url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return &SSEDialer{}, nil
	case "ws", "wss":
		return &WebSocketDialer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

package livereload

import (
	"context"
	"log/slog"
	"os"
	"time"

	"gopkg.in/cenkalti/backoff.v1"
)

type clientConfig struct {
	logger      *slog.Logger
	dialer      Dialer
	reloader    Reloader
	eventName   string
	retryPolicy backoff.BackOff
	// sleep waits for d and reports false if ctx ended first.
	sleep func(ctx context.Context, d time.Duration) bool
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		logger:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
		eventName:   DefaultEventName,
		retryPolicy: DefaultRetryPolicy(),
		sleep:       sleepContext,
	}
}

// DefaultRetryPolicy returns the reconnect policy used when none is set: a
// constant DefaultRetryDelay, forever.
func DefaultRetryPolicy() backoff.BackOff {
	return backoff.NewConstantBackOff(DefaultRetryDelay)
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.config.logger = logger
		}
	}
}

// WithDialer sets the transport used to open connections. When unset the
// dialer is picked from the URL scheme, see DialerFor.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.config.dialer = d
	}
}

// WithReloader sets what a restart notification reloads.
func WithReloader(r Reloader) Option {
	return func(c *Client) {
		c.config.reloader = r
	}
}

// WithEventName overrides the notification name that triggers a reload.
func WithEventName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.config.eventName = name
		}
	}
}

// WithRetryPolicy replaces the reconnect policy. NextBackOff is asked once
// per transport error; returning backoff.Stop ends the client.
func WithRetryPolicy(policy backoff.BackOff) Option {
	return func(c *Client) {
		if policy != nil {
			c.config.retryPolicy = policy
		}
	}
}

// WithRetryDelay is shorthand for a constant retry policy with delay d.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.config.retryPolicy = backoff.NewConstantBackOff(d)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package livereload

import (
	"context"
	"sync"
	"sync/atomic"

	"gopkg.in/cenkalti/backoff.v1"
)

// Client keeps one server-push connection to a refresh server open and
// reloads the page when the restart notification arrives.
type Client struct {
	config clientConfig
	url    string

	mu      sync.Mutex
	conn    Conn // the handle currently listened to, nil between attempts
	started bool
	stopped bool
	cancel  context.CancelFunc

	state    atomic.Int32
	reloaded atomic.Bool
	done     chan struct{}
}

// New creates a client for url. Nothing is dialed until Start.
func New(url string, opts ...Option) *Client {
	c := &Client{
		config: defaultClientConfig(),
		url:    url,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins connecting in the background and returns immediately.
// Cancelling ctx has the same effect as Stop.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	if c.config.dialer == nil {
		d, err := DialerFor(c.url)
		if err != nil {
			return err
		}
		c.config.dialer = d
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true

	go c.run(runCtx)
	return nil
}

// Stop tears the client down: the pending retry timer is cancelled and the
// current connection handle, if any, is closed. Stop waits for the
// background loop to exit and may be called more than once.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	var conn Conn
	if !c.stopped {
		c.stopped = true
		c.cancel()
		conn, c.conn = c.conn, nil
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
		c.config.logger.Debug("refresh: connection closed on teardown", "url", c.url)
	}
	<-c.done
	return nil
}

// Done is closed once the client will make no further connection attempts.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Reloaded reports whether the client ended because of a restart notification.
func (c *Client) Reloaded() bool {
	return c.reloaded.Load()
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// URL returns the endpoint the client connects to.
func (c *Client) URL() string {
	return c.url
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	policy := c.config.retryPolicy
	policy.Reset()

	for {
		err := c.connect(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			c.releaseCurrent()
			return
		}

		c.config.logger.Warn("refresh: EventSource failed:", "url", c.url, "error", err)
		c.releaseCurrent()
		c.setState(StateDisconnected)

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			c.config.logger.Info("refresh: Retry policy exhausted, giving up", "url", c.url)
			return
		}
		if !c.config.sleep(ctx, delay) {
			return
		}
		c.config.logger.Debug("refresh: Attempting to reconnect...", "url", c.url)
	}
}

// connect runs a single connection attempt. It returns nil after a reload
// and the transport error otherwise. On error the handle is left in place
// for run to release.
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, err := c.config.dialer.Dial(ctx, c.url)
	if err != nil {
		return err
	}
	if !c.hold(conn) {
		conn.Close()
		return context.Canceled
	}

	c.setState(StateConnected)
	c.config.logger.Debug("refresh: Connected", "url", c.url)

	for {
		ev, err := conn.Next(ctx)
		if err != nil {
			return err
		}
		if ev.Name != c.config.eventName {
			continue
		}

		c.config.logger.Info("refresh: Restart notification received, reloading", "url", c.url, "data", ev.Data)
		c.releaseCurrent()
		c.reloaded.Store(true)
		c.reload(ctx)
		return nil
	}
}

// reload runs under the loop context, so Stop interrupts a slow reloader.
func (c *Client) reload(ctx context.Context) {
	if c.config.reloader == nil {
		c.config.logger.Info("refresh: No reloader configured, nothing to reload")
		return
	}
	if err := c.config.reloader.Reload(ctx); err != nil {
		c.config.logger.Error("refresh: Reload failed", "error", err)
	}
}

// hold makes conn the current handle unless the client is being torn down.
func (c *Client) hold(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.conn = conn
	return true
}

// releaseCurrent closes the current handle. Stop may have taken and closed
// it already, in which case nothing happens.
func (c *Client) releaseCurrent() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

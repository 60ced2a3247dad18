package livereload

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"
)

// SSEDialer connects to a server-sent events stream. The underlying client
// never reconnects on its own; retrying is left to Client.
type SSEDialer struct {
	// HTTPClient is used for the stream request. Defaults to the sse
	// package's client.
	HTTPClient *http.Client

	// Headers are added to every stream request.
	Headers map[string]string
}

// Dial implements Dialer.
func (d *SSEDialer) Dial(ctx context.Context, url string) (Conn, error) {
	client := sse.NewClient(url)
	client.ReconnectStrategy = &backoff.StopBackOff{}
	if d.HTTPClient != nil {
		client.Connection = d.HTTPClient
	}
	for k, v := range d.Headers {
		client.Headers[k] = v
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	c := &sseConn{
		events: make(chan Event),
		dead:   make(chan struct{}),
		closed: make(chan struct{}),
		cancel: cancel,
	}

	accepted := make(chan struct{})
	client.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("could not connect to stream: %s", resp.Status)
		}
		close(accepted)
		return nil
	}

	go func() {
		err := client.SubscribeRawWithContext(streamCtx, func(msg *sse.Event) {
			ev := Event{ID: string(msg.ID), Name: string(msg.Event), Data: string(msg.Data)}
			select {
			case c.events <- ev:
			case <-streamCtx.Done():
			}
		})
		if err == nil {
			err = ErrStreamClosed
		}
		c.err = err
		close(c.dead)
	}()

	select {
	case <-accepted:
		return c, nil
	case <-c.dead:
		return nil, c.err
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

type sseConn struct {
	events chan Event
	dead   chan struct{}
	err    error // set before dead is closed
	closed chan struct{}

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *sseConn) Next(ctx context.Context) (Event, error) {
	select {
	case <-c.closed:
		return Event{}, ErrConnClosed
	default:
	}
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.dead:
		return Event{}, c.err
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (c *sseConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
	return nil
}

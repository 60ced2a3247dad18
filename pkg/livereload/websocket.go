package livereload

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Message is the JSON frame used on WebSocket connections.
type Message struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// WebSocketDialer connects to the refresh server's WebSocket endpoint.
type WebSocketDialer struct {
	Options *websocket.DialOptions
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.Dial(ctx, url, d.Options)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial to %s failed: %w (status: %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial to %s failed: %w", url, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (c *wsConn) Next(ctx context.Context) (Event, error) {
	var msg Message
	if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
		return Event{}, err
	}
	return Event{ID: msg.ID, Name: msg.Event, Data: msg.Data}, nil
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.conn.Close(websocket.StatusNormalClosure, "teardown")
	})
	return nil
}

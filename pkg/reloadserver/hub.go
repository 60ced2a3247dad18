package reloadserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/lightforgemedia/go-refresh/pkg/livereload"
)

const wsWriteTimeout = 5 * time.Second

// hub keeps the open WebSocket connections and broadcasts to them.
type hub struct {
	logger *slog.Logger
	mu     sync.RWMutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.logger.Warn("liveReload: WebSocket accept failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("liveReload: WebSocket client connected", "remote", r.RemoteAddr)

	// Clients never send anything; CloseRead ends ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Debug("liveReload: WebSocket client disconnected", "remote", r.RemoteAddr)
}

func (h *hub) broadcast(msg livereload.Message) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			h.logger.Warn("liveReload: WebSocket write failed", "error", err)
			conn.CloseNow()
		}
		cancel()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *hub) close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*websocket.Conn]struct{})
	h.closed = true
	h.mu.Unlock()

	for conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

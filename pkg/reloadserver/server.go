// Package reloadserver is the server side of live reload. It tells pages
// connected over server-sent events or WebSocket that the supervised process
// was restarted, and serves the browser script that listens for it.
package reloadserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/cors"

	"github.com/lightforgemedia/go-refresh/assets"
	"github.com/lightforgemedia/go-refresh/pkg/livereload"
)

// RestartMessage is the payload sent with the restart notification.
const RestartMessage = "The server has been restarted"

// Server publishes restart notifications to connected pages.
type Server struct {
	options Options
	logger  *slog.Logger
	events  *sse.Server
	hub     *hub
	handler http.Handler

	streams atomic.Int32
	closed  atomic.Bool

	mu      sync.Mutex
	httpSrv *http.Server
	baseURL string
}

// New creates a live reload server. Use Handler to mount it on an existing
// server or Start to listen on Options.Addr.
func New(opts ...Option) *Server {
	s := &Server{
		options: DefaultOptions(),
		logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = newHub(s.logger)
	s.events = sse.New()
	s.events.AutoReplay = false
	s.events.CreateStream(s.options.StreamID)

	scriptOpts := assets.DefaultScriptOptions()
	scriptOpts.Path = s.options.ScriptPath
	scriptOpts.EventName = s.options.EventName
	scriptOpts.StreamURL = s.streamURLFor

	mux := http.NewServeMux()
	mux.Handle(s.options.WSPath, s.hub)
	mux.Handle(s.options.ScriptPath, assets.ScriptHandler(scriptOpts))
	mux.HandleFunc("/", s.serveEvents)

	// Pages are served from the application's origin, not ours.
	s.handler = cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)

	return s
}

// Handler returns the HTTP handler serving the stream, WebSocket and script
// endpoints.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "live reload server closed", http.StatusServiceUnavailable)
		return
	}
	s.streams.Add(1)
	defer s.streams.Add(-1)
	s.events.ServeHTTP(w, r)
}

// Start listens on Options.Addr and serves in the background until Close.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("listening for live reload: %w", err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.baseURL = "http://" + ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("liveReload: Server error", "error", err)
		}
	}()

	s.logger.Debug("liveReload: Started server", "url", s.baseURL)
	return nil
}

// URLs returns the endpoints of a started server. It is empty before Start.
func (s *Server) URLs() URLs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseURL == "" {
		return URLs{}
	}
	return URLsFor(s.baseURL, s.options)
}

// Env returns the environment handed to the supervised process so it can
// load the script or connect on its own.
func (s *Server) Env() []string {
	u := s.URLs()
	if u.Base == "" {
		return nil
	}
	return []string{
		assets.EnvSSEURL + "=" + u.SSE,
		assets.EnvSSEEvent + "=" + s.options.EventName,
		assets.EnvWSURL + "=" + u.WS,
		assets.EnvScriptURL + "=" + u.Script,
	}
}

// NotifyRestart tells every connected page that the process restarted.
func (s *Server) NotifyRestart() {
	s.logger.Debug("liveReload: Notify restart", "clients", s.Clients())
	s.Publish(s.options.EventName, RestartMessage)
}

// Publish sends a named event on both transports.
func (s *Server) Publish(event, data string) {
	s.events.Publish(s.options.StreamID, &sse.Event{
		Event: []byte(event),
		Data:  []byte(data),
	})
	s.hub.broadcast(livereload.Message{Event: event, Data: data})
}

// Clients returns the number of open event streams and WebSocket connections.
func (s *Server) Clients() int {
	return int(s.streams.Load()) + s.hub.count()
}

// Close disconnects all clients and stops the listener started by Start.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.events.Close()
	s.hub.close()

	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return err
	}
	s.logger.Debug("liveReload: Stopped server")
	return nil
}

func (s *Server) streamURLFor(r *http.Request) string {
	s.mu.Lock()
	base := s.baseURL
	s.mu.Unlock()
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return URLsFor(base, s.options).SSE
}

// URLs are the public endpoints of a live reload server.
type URLs struct {
	Base   string
	SSE    string
	WS     string
	Script string
}

// URLsFor derives the endpoints from a base URL such as http://127.0.0.1:4000.
func URLsFor(base string, o Options) URLs {
	base = strings.TrimSuffix(base, "/")
	ws := "ws" + strings.TrimPrefix(base, "http")
	return URLs{
		Base:   base,
		SSE:    base + "/?stream=" + o.StreamID,
		WS:     ws + o.WSPath,
		Script: base + o.ScriptPath,
	}
}

// Package testutil provides common test utilities for the go-refresh packages.
package testutil

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/lightforgemedia/go-refresh/pkg/reloadserver"
)

var (
	// Default logger for tests
	defaultSlogHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	DefaultLogger = slog.New(defaultSlogHandler)
)

// ReloadServer is a live reload server mounted on an httptest.Server.
type ReloadServer struct {
	Server *reloadserver.Server
	HTTP   *httptest.Server
	URLs   reloadserver.URLs
}

// NewReloadServer starts a live reload server for the duration of the test.
func NewReloadServer(t *testing.T, opts ...reloadserver.Option) *ReloadServer {
	t.Helper()

	finalOpts := append([]reloadserver.Option{reloadserver.WithLogger(DefaultLogger)}, opts...)
	s := reloadserver.New(finalOpts...)
	srv := httptest.NewServer(s.Handler())

	rs := &ReloadServer{
		Server: s,
		HTTP:   srv,
		URLs:   reloadserver.URLsFor(srv.URL, reloadserver.DefaultOptions()),
	}

	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})
	return rs
}

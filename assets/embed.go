// Package assets contains the browser side of live reload: an embedded
// script that keeps the page connected to the refresh server, plus helpers
// to render, serve and inject it.
package assets

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"github.com/lightforgemedia/go-refresh/pkg/livereload"
)

//go:embed dist/reload.js
var scriptFiles embed.FS

const scriptFile = "dist/reload.js"

// Environment variables handed to the supervised process.
const (
	EnvSSEURL    = "REFRESH_LIVE_RELOAD_SSE_URL"
	EnvSSEEvent  = "REFRESH_LIVE_RELOAD_SSE_EVENT"
	EnvWSURL     = "REFRESH_LIVE_RELOAD_WS_URL"
	EnvScriptURL = "REFRESH_LIVE_RELOAD_SCRIPT_URL"
)

// Template returns the raw script with its placeholders.
func Template() ([]byte, error) {
	return scriptFiles.ReadFile(scriptFile)
}

// Render returns the script bound to the given stream URL and event name.
// An empty event name means livereload.DefaultEventName.
func Render(sseURL, event string) ([]byte, error) {
	src, err := Template()
	if err != nil {
		return nil, err
	}
	if event == "" {
		event = livereload.DefaultEventName
	}

	r := strings.NewReplacer(
		"${"+EnvSSEURL+"}", template.JSEscapeString(sseURL),
		"${"+EnvSSEEvent+"}", template.JSEscapeString(event),
	)
	return []byte(r.Replace(string(src))), nil
}

// RenderMinified is Render followed by JavaScript minification.
func RenderMinified(sseURL, event string) ([]byte, error) {
	src, err := Render(sseURL, event)
	if err != nil {
		return nil, err
	}

	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)

	out, err := m.Bytes("application/javascript", src)
	if err != nil {
		return nil, fmt.Errorf("minifying live reload script: %w", err)
	}
	return out, nil
}

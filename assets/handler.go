package assets

import (
	"net/http"
	"strconv"
)

// ScriptOptions configures the script handler
type ScriptOptions struct {
	// Path is the URL path where the script will be served
	// Default: "/reload.js"
	Path string

	// CacheMaxAge sets the Cache-Control max-age directive in seconds.
	// The rendered script depends on the server address, so the default is 0.
	CacheMaxAge int

	// Minify serves the minified script. Default: true
	Minify bool

	// EventName is the restart notification the page listens for.
	// Default: livereload.DefaultEventName
	EventName string

	// StreamURL returns the event stream URL the page should connect to.
	// Default: the "/?stream=refresh" stream on the host serving the script.
	StreamURL func(r *http.Request) string
}

// DefaultScriptOptions returns the default options for the script handler
func DefaultScriptOptions() ScriptOptions {
	return ScriptOptions{
		Path:      "/reload.js",
		Minify:    true,
		StreamURL: SameHostStreamURL,
	}
}

// SameHostStreamURL points the page at the refresh stream of the host that
// served the script.
func SameHostStreamURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/?stream=refresh"
}

// ScriptHandler returns an HTTP handler that serves the rendered live reload script
func ScriptHandler(options ScriptOptions) http.Handler {
	if options.StreamURL == nil {
		options.StreamURL = SameHostStreamURL
	}
	return &scriptHandler{options: options}
}

type scriptHandler struct {
	options ScriptOptions
}

func (h *scriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render := Render
	if h.options.Minify {
		render = RenderMinified
	}

	data, err := render(h.options.StreamURL(r), h.options.EventName)
	if err != nil {
		http.Error(w, "live reload script unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/javascript")
	if h.options.CacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(h.options.CacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}

	w.Write(data)
}

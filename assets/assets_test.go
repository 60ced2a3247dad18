package assets

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	raw, err := Template()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "${"+EnvSSEURL+"}")
	assert.Contains(t, string(raw), "${"+EnvSSEEvent+"}")

	url := "http://127.0.0.1:4567/?stream=refresh"
	out, err := Render(url, "")
	require.NoError(t, err)

	script := string(out)
	assert.NotContains(t, script, "${")
	assert.Contains(t, script, "'"+template.JSEscapeString(url)+"'")
	assert.Contains(t, script, `stream\u003Drefresh`)
	assert.Contains(t, script, `'refresh-restart'`)
	assert.Contains(t, script, "refresh: EventSource failed:")
	assert.Contains(t, script, "refresh: Attempting to reconnect...")
	assert.Contains(t, script, "5000")
}

func TestRenderEscapesURL(t *testing.T) {
	out, err := Render("http://x/?a='b'</script>", "custom")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "'b'")
	assert.NotContains(t, string(out), "</script>")
	assert.Contains(t, string(out), `'custom'`)
}

func TestRenderMinified(t *testing.T) {
	full, err := Render("http://127.0.0.1:4567/?stream=refresh", "")
	require.NoError(t, err)
	min, err := RenderMinified("http://127.0.0.1:4567/?stream=refresh", "")
	require.NoError(t, err)

	assert.Less(t, len(min), len(full), "Minified script should be smaller")
	// '=' is escaped inside the script string.
	assert.Contains(t, string(min), "http://127.0.0.1:4567/?stream")
	assert.Contains(t, string(min), "refresh-restart")
}

func TestScriptHandler(t *testing.T) {
	srv := httptest.NewServer(ScriptHandler(DefaultScriptOptions()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/reload.js")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), srv.URL+"/?stream")
}

func TestScriptHandlerCustomStream(t *testing.T) {
	opts := DefaultScriptOptions()
	opts.Minify = false
	opts.CacheMaxAge = 60
	opts.EventName = "rebuilt"
	opts.StreamURL = func(*http.Request) string { return "http://events.test/stream" }

	rec := httptest.NewRecorder()
	ScriptHandler(opts).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reload.js", nil))

	assert.Equal(t, "max-age=60", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "'http://events.test/stream'")
	assert.Contains(t, rec.Body.String(), "'rebuilt'")
}

func TestInjectScript(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"before body", "<html><body><p>hi</p></body></html>", `<p>hi</p><script src="http://lr/reload.js"></script></body>`},
		{"upper case body", "<HTML><BODY>x</BODY></HTML>", `x<script src="http://lr/reload.js"></script></BODY>`},
		{"before html", "<html><p>x</p></html>", `<p>x</p><script src="http://lr/reload.js"></script></html>`},
		{"appended", "<p>fragment</p>", `<p>fragment</p><script src="http://lr/reload.js"></script>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := InjectScript(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusTeapot)
				io.WriteString(w, tt.body)
			}), "http://lr/reload.js")

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.True(t, strings.HasSuffix(rec.Body.String(), tt.want) || strings.Contains(rec.Body.String(), tt.want), rec.Body.String())
			assert.Equal(t, 1, strings.Count(rec.Body.String(), "<script"))
		})
	}
}

func TestInjectScriptLeavesOtherContent(t *testing.T) {
	h := InjectScript(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"body":"</body>"}`)
	}), "http://lr/reload.js")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, `{"body":"</body>"}`, rec.Body.String())
}

func TestInjectScriptDisabled(t *testing.T) {
	next := http.NotFoundHandler()
	assert.NotNil(t, InjectScript(next, ""))

	t.Setenv(EnvScriptURL, "")
	assert.Equal(t, "", ScriptURLFromEnv())
	t.Setenv(EnvScriptURL, "http://lr/reload.js")
	assert.Equal(t, "http://lr/reload.js", ScriptURLFromEnv())
}

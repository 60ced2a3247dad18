package assets

import (
	"bytes"
	"html"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// ScriptURLFromEnv returns the script URL the refresh runner exported to
// the process, or "" when it runs without live reload.
func ScriptURLFromEnv() string {
	return os.Getenv(EnvScriptURL)
}

// ScriptTag returns the HTML tag loading the live reload script.
func ScriptTag(scriptURL string) string {
	return `<script src="` + html.EscapeString(scriptURL) + `"></script>`
}

// InjectScript wraps next so that every text/html response loads the live
// reload script from scriptURL. The tag goes before </body>, else before
// </html>, else at the end. With an empty scriptURL next is returned as is.
func InjectScript(next http.Handler, scriptURL string) http.Handler {
	if scriptURL == "" {
		return next
	}
	tag := []byte(ScriptTag(scriptURL))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iw := &injectWriter{ResponseWriter: w, tag: tag}
		next.ServeHTTP(iw, r)
		iw.flush()
	})
}

// injectWriter buffers HTML bodies and passes everything else through.
type injectWriter struct {
	http.ResponseWriter
	tag         []byte
	status      int
	checked     bool
	isHTML      bool
	wroteHeader bool
	buf         bytes.Buffer
}

func (w *injectWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *injectWriter) Write(b []byte) (int, error) {
	if !w.checked {
		w.checked = true
		ct := w.Header().Get("Content-Type")
		if ct == "" {
			ct = http.DetectContentType(b)
		}
		w.isHTML = strings.Contains(ct, "text/html")
	}

	if w.isHTML {
		return w.buf.Write(b)
	}
	w.writeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *injectWriter) writeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}
}

func (w *injectWriter) flush() {
	if !w.isHTML {
		w.writeHeader()
		return
	}

	body := injectTag(w.buf.Bytes(), w.tag)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.writeHeader()
	w.ResponseWriter.Write(body)
}

func injectTag(body, tag []byte) []byte {
	lower := bytes.ToLower(body)
	idx := bytes.LastIndex(lower, []byte("</body>"))
	if idx == -1 {
		idx = bytes.LastIndex(lower, []byte("</html>"))
	}
	if idx == -1 {
		return append(body, tag...)
	}

	out := make([]byte, 0, len(body)+len(tag))
	out = append(out, body[:idx]...)
	out = append(out, tag...)
	return append(out, body[idx:]...)
}

// Package loghandler is a compact, colored slog.Handler for terminal output.
package loghandler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
)

// LevelFatal is above slog.LevelError. Records at this level are rendered but
// the handler never exits the process.
const LevelFatal = slog.Level(12)

type style struct {
	symbol string
	color  *color.Color
}

func styleFor(l slog.Level) style {
	switch {
	case l >= LevelFatal:
		return style{"✘", color.New(color.FgRed)}
	case l >= slog.LevelError:
		return style{"✗", color.New(color.FgRed)}
	case l >= slog.LevelWarn:
		return style{"△", color.New(color.FgYellow)}
	case l >= slog.LevelInfo:
		return style{"•", color.New(color.FgWhite)}
	default:
		return style{"•", color.New()}
	}
}

// Options configure a Handler.
type Options struct {
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Prefix is printed in front of every line.
	Prefix string
	// NoColor disables escape sequences regardless of the terminal.
	NoColor bool
}

// Handler writes one line per record: prefix, level symbol, padded message
// and key=value attributes.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	attrs  []slog.Attr
	groups []string
}

// New creates a handler writing to w. Files are wrapped with go-colorable so
// colors work on Windows consoles.
func New(w io.Writer, opts *Options) *Handler {
	h := &Handler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if f, ok := w.(*os.File); ok {
		h.w = colorable.NewColorable(f)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	st := styleFor(r.Level)
	if h.opts.NoColor {
		st.color.DisableColor()
	}

	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Prefix != "" {
		fmt.Fprint(h.w, h.opts.Prefix, " ")
	}
	st.color.Fprintf(h.w, "%s %-40s", st.symbol, r.Message)
	for _, a := range attrs {
		writeAttr(h.w, st.color, "", a)
	}
	_, err := fmt.Fprintln(h.w)
	return err
}

func writeAttr(w io.Writer, c *color.Color, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(w, c, key, ga)
		}
		return
	}
	fmt.Fprintf(w, " %s=%v", c.Sprint(key), a.Value.Any())
}

func (h *Handler) qualify(a slog.Attr) slog.Attr {
	for i := len(h.groups) - 1; i >= 0; i-- {
		a = slog.Group(h.groups[i], a)
	}
	return a
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, h.qualify(a))
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clone(h.groups), name)
	return &h2
}

// LevelForVerbosity maps a 0..4 verbosity (fatal, error, warn, info, debug)
// to a slog level.
func LevelForVerbosity(verbosity int) slog.Level {
	if verbosity >= 4 {
		return slog.LevelDebug
	}
	switch verbosity {
	case 3:
		return slog.LevelInfo
	case 2:
		return slog.LevelWarn
	case 1:
		return slog.LevelError
	}
	return LevelFatal
}

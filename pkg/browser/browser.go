// Package browser drives a Chromium page over the DevTools protocol so a
// restart notification can reload a real browser tab.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNoBrowser is returned by Launch when no Chromium binary can be found.
var ErrNoBrowser = errors.New("no browser found")

// Browser is a launched Chromium instance.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *slog.Logger
	headless bool
	bin      string
}

// Option configures Launch.
type Option func(*Browser)

// WithHeadless configures whether the browser should run in headless mode.
func WithHeadless(headless bool) Option {
	return func(b *Browser) {
		b.headless = headless
	}
}

// WithBin uses the browser binary at path instead of searching for one.
func WithBin(path string) Option {
	return func(b *Browser) {
		b.bin = path
	}
}

// WithLogger sets the logger for the browser
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Available reports whether a browser binary is installed.
func Available() bool {
	_, has := launcher.LookPath()
	return has
}

// Launch starts a browser. It is headless unless WithHeadless(false) is given.
func Launch(opts ...Option) (*Browser, error) {
	b := &Browser{
		headless: true,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.bin == "" {
		path, has := launcher.LookPath()
		if !has {
			return nil, ErrNoBrowser
		}
		b.bin = path
	}

	b.launcher = launcher.New().
		Bin(b.bin).
		Headless(b.headless).
		Delete("disable-extensions")
	if !b.headless {
		b.launcher.Delete("disable-gpu")
	}

	controlURL, err := b.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b.browser = rod.New().ControlURL(controlURL)
	if err := b.browser.Connect(); err != nil {
		b.launcher.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	b.logger.Debug("browser: Launched", "bin", b.bin, "headless", b.headless)
	return b, nil
}

// Open navigates a new tab to url and waits for it to load.
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		p.Close()
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	b.logger.Debug("browser: Opened page", "url", url)
	return &Page{page: p.Context(context.Background()), logger: b.logger}, nil
}

// Close closes the browser and removes its profile directory.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

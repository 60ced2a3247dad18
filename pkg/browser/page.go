package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
)

// Page is a browser tab. It implements livereload.Reloader.
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

// Reload reloads the tab and waits for the new document to load.
func (p *Page) Reload(ctx context.Context) error {
	page := p.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("reloading page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for reload: %w", err)
	}
	p.logger.Debug("browser: Reloaded page", "url", p.URL())
	return nil
}

// URL returns the address of the current document.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Eval evaluates a JavaScript function expression such as `() => document.title`
// and returns its result as a string.
func (p *Page) Eval(ctx context.Context, js string) (string, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}

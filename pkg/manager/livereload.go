package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gopkg.in/cenkalti/backoff.v1"
)

// readinessBackOff bounds how long a restarted process may take to answer
// on ReadinessURL.
var readinessBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (m *Manager) notifyLiveReloadRestart(ctx context.Context) {
	s := m.ReloadServer()
	if s == nil {
		return
	}

	if m.ReadinessURL != "" {
		if err := m.waitForReadiness(ctx); err != nil {
			m.logger.Warn("liveReload: Readiness check failed", "error", err)
			return
		}
	}

	s.NotifyRestart()
}

func (m *Manager) waitForReadiness(ctx context.Context) error {
	m.logger.Debug("liveReload: Waiting for readiness", "url", m.ReadinessURL)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ReadinessURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		m.logger.Debug("liveReload: Readiness check successful")
		return nil
	}, readinessBackOff())
}

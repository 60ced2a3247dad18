package manager

import (
	"log/slog"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
)

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBroker publishes lifecycle events on b instead of a private broker.
// The caller keeps ownership and closes it.
func WithBroker(b *broker.Broker) Option {
	return func(m *Manager) {
		if b != nil {
			m.broker = b
			m.ownBroker = false
		}
	}
}

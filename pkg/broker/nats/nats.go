// Package nats forwards lifecycle events to a NATS server so tools outside
// the process can follow builds and restarts.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
)

// DefaultSubjectPrefix is prepended to the event topic, giving subjects such
// as refresh.build.succeeded.
const DefaultSubjectPrefix = "refresh"

// Options contains configuration options for the forwarder.
type Options struct {
	// URL is the NATS server URL.
	URL string

	// SubjectPrefix defaults to DefaultSubjectPrefix.
	SubjectPrefix string

	// ConnectionOptions are additional options for the NATS connection.
	ConnectionOptions []nats.Option

	Logger *slog.Logger
}

// Forwarder republishes broker events as JSON on NATS subjects.
type Forwarder struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// New connects to NATS.
func New(opts Options) (*Forwarder, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = DefaultSubjectPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	conn, err := nats.Connect(opts.URL, opts.ConnectionOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Forwarder{
		conn:   conn,
		prefix: opts.SubjectPrefix,
		logger: opts.Logger,
	}, nil
}

// Subject returns the NATS subject for a topic.
func (f *Forwarder) Subject(topic string) string {
	return f.prefix + "." + topic
}

// Forward sends one event.
func (f *Forwarder) Forward(ev broker.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.conn.Publish(f.Subject(ev.Topic), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Attach forwards every lifecycle topic of b until ctx is done.
func (f *Forwarder) Attach(ctx context.Context, b *broker.Broker) error {
	return b.Subscribe(ctx, func(_ context.Context, ev broker.Event) {
		if err := f.Forward(ev); err != nil {
			f.logger.Warn("nats: Forwarding event failed", "topic", ev.Topic, "error", err)
		}
	}, broker.Topics...)
}

// Close flushes pending messages and closes the connection.
func (f *Forwarder) Close() error {
	if err := f.conn.Flush(); err != nil {
		f.conn.Close()
		return err
	}
	f.conn.Close()
	return nil
}

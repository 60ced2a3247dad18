// Package broker carries the runner's lifecycle events between components.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/cskr/pubsub"
)

// Lifecycle topics.
const (
	TopicBuildStarted   = "build.started"
	TopicBuildSucceeded = "build.succeeded"
	TopicBuildFailed    = "build.failed"
	TopicProcessStarted = "process.started"
	TopicProcessStopped = "process.stopped"
	TopicRestart        = "restart"
	TopicAssetsChanged  = "assets.changed"
)

// Topics lists every lifecycle topic.
var Topics = []string{
	TopicBuildStarted,
	TopicBuildSucceeded,
	TopicBuildFailed,
	TopicProcessStarted,
	TopicProcessStopped,
	TopicRestart,
	TopicAssetsChanged,
}

// Errors
var (
	ErrClosed       = errors.New("broker closed")
	ErrUnknownTopic = errors.New("unknown topic")
)

// Event is one lifecycle notification.
type Event struct {
	Topic     string        `json:"topic"`
	ManagerID string        `json:"manager_id,omitempty"`
	Path      string        `json:"path,omitempty"`
	Op        string        `json:"op,omitempty"`
	PID       int           `json:"pid,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
	Time      time.Time     `json:"time"`
}

// Handler receives events of the topics it subscribed to, one at a time and
// in publish order.
type Handler func(ctx context.Context, ev Event)

// Broker is an in-process event bus backed by cskr/pubsub.
type Broker struct {
	bus    *pubsub.PubSub
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a broker. queueLength is the buffer of every subscription.
func New(queueLength int, logger *slog.Logger) *Broker {
	if queueLength < 0 {
		queueLength = 0
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Broker{
		bus:    pubsub.New(queueLength),
		logger: logger,
	}
}

// Publish sends ev to the subscribers of ev.Topic.
func (b *Broker) Publish(ev Event) error {
	if ev.Topic == "" {
		return errors.New("topic cannot be empty")
	}
	if !slices.Contains(Topics, ev.Topic) {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, ev.Topic)
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	b.logger.Debug("Publishing event", "topic", ev.Topic, "path", ev.Path, "pid", ev.PID)
	b.bus.Pub(ev, ev.Topic)
	return nil
}

// Subscribe calls fn for every event on topics until ctx is done or the
// broker is closed.
func (b *Broker) Subscribe(ctx context.Context, fn Handler, topics ...string) error {
	if len(topics) == 0 {
		return errors.New("at least one topic is required")
	}
	if fn == nil {
		return errors.New("handler function cannot be nil")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	ch := b.bus.Sub(topics...)
	b.wg.Add(1)
	b.mu.Unlock()

	b.logger.Debug("Subscribed", "topics", topics)

	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				b.unsubscribe(ch, topics)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if ev, ok := msg.(Event); ok {
					fn(ctx, ev)
				}
			}
		}
	}()
	return nil
}

// unsubscribe removes ch and drains it until the bus closes it, so a pending
// delivery cannot block the bus.
func (b *Broker) unsubscribe(ch chan interface{}, topics []string) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if !closed {
		go b.bus.Unsub(ch, topics...)
	}
	for range ch {
	}
	b.logger.Debug("Unsubscribed", "topics", topics)
}

// Close shuts the bus down and waits for running handlers to return.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.bus.Shutdown()
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ctx context.Context, t *testing.T, b *Broker, topics ...string) (func() []Event, chan struct{}) {
	t.Helper()
	var mu sync.Mutex
	var got []Event
	signal := make(chan struct{}, 16)
	require.NoError(t, b.Subscribe(ctx, func(_ context.Context, ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		signal <- struct{}{}
	}, topics...))
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), got...)
	}, signal
}

func waitSignals(t *testing.T, signal chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-signal:
		case <-time.After(time.Second):
			t.Fatalf("Timed out after %d of %d events", i, n)
		}
	}
}

func TestBrokerDeliversInOrder(t *testing.T) {
	b := New(8, nil)
	defer b.Close()

	events, signal := collect(context.Background(), t, b, TopicBuildStarted, TopicBuildSucceeded)

	require.NoError(t, b.Publish(Event{Topic: TopicBuildStarted, Path: "a.go"}))
	require.NoError(t, b.Publish(Event{Topic: TopicRestart}))
	require.NoError(t, b.Publish(Event{Topic: TopicBuildSucceeded, Path: "a.go", Duration: time.Second}))

	waitSignals(t, signal, 2)
	got := events()
	require.Len(t, got, 2)
	assert.Equal(t, TopicBuildStarted, got[0].Topic)
	assert.Equal(t, TopicBuildSucceeded, got[1].Topic)
	assert.Equal(t, time.Second, got[1].Duration)
	assert.False(t, got[0].Time.IsZero(), "publish stamps the time")
}

func TestBrokerUnsubscribesOnCancel(t *testing.T) {
	b := New(8, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, signal := collect(ctx, t, b, TopicRestart)

	require.NoError(t, b.Publish(Event{Topic: TopicRestart}))
	waitSignals(t, signal, 1)

	cancel()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, b.Publish(Event{Topic: TopicRestart}))
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, events(), 1)
}

func TestBrokerValidation(t *testing.T) {
	b := New(-1, nil)

	assert.Error(t, b.Publish(Event{}))
	assert.ErrorIs(t, b.Publish(Event{Topic: "no.such.topic"}), ErrUnknownTopic)
	assert.Error(t, b.Subscribe(context.Background(), func(context.Context, Event) {}))
	assert.Error(t, b.Subscribe(context.Background(), nil, TopicRestart))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(Event{Topic: TopicRestart}), ErrClosed)
	assert.ErrorIs(t, b.Subscribe(context.Background(), func(context.Context, Event) {}, TopicRestart), ErrClosed)
}

func TestBrokerCloseEndsSubscriptions(t *testing.T) {
	b := New(8, nil)
	_, signal := collect(context.Background(), t, b, TopicRestart)

	require.NoError(t, b.Publish(Event{Topic: TopicRestart}))
	waitSignals(t, signal, 1)

	done := make(chan struct{})
	go func() {
		b.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close should return once handlers are done")
	}
}

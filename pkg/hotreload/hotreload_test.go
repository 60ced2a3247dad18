package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
	"github.com/lightforgemedia/go-refresh/pkg/filewatcher"
	"github.com/lightforgemedia/go-refresh/pkg/testutil"
)

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoBroker)

	b := broker.New(1, nil)
	defer b.Close()
	_, err = New(WithBroker(b))
	assert.ErrorIs(t, err, ErrNoFileWatcher)
}

func TestAssetChangePublishesEvent(t *testing.T) {
	dir := t.TempDir()

	b := broker.New(4, testutil.DefaultLogger)
	defer b.Close()

	got := make(chan broker.Event, 4)
	require.NoError(t, b.Subscribe(context.Background(), func(_ context.Context, ev broker.Event) {
		got <- ev
	}, broker.TopicAssetsChanged))

	fw, err := filewatcher.New(
		filewatcher.WithLogger(testutil.DefaultLogger),
		filewatcher.WithRoot(dir),
		filewatcher.WithPatterns([]string{"*.html", "*.css"}),
		filewatcher.WithDebounce(50*time.Millisecond),
	)
	require.NoError(t, err)

	hr, err := New(
		WithLogger(testutil.DefaultLogger),
		WithBroker(b),
		WithFileWatcher(fw),
		WithManagerID("m-1"),
	)
	require.NoError(t, err)
	require.NoError(t, hr.Start())
	defer hr.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	css := filepath.Join(dir, "site.css")
	require.NoError(t, os.WriteFile(css, []byte("body{}"), 0o644))

	select {
	case ev := <-got:
		assert.Equal(t, broker.TopicAssetsChanged, ev.Topic)
		assert.Equal(t, css, ev.Path)
		assert.Equal(t, "m-1", ev.ManagerID)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for asset change")
	}
	assert.Equal(t, int64(1), hr.Changes())
}

package filewatcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string, opts ...Option) chan Event {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	opts = append([]Option{
		WithLogger(logger),
		WithRoot(root),
		WithDebounce(100 * time.Millisecond),
	}, opts...)
	fw, err := New(opts...)
	require.NoError(t, err, "Failed to create file watcher")

	changeCh := make(chan Event, 10)
	fw.AddCallback(func(ev Event) {
		changeCh <- ev
	})

	require.NoError(t, fw.Start(), "Failed to start file watcher")
	t.Cleanup(func() { fw.Stop() })
	return changeCh
}

func expectChange(t *testing.T, ch chan Event, path string) Event {
	t.Helper()
	select {
	case ev := <-ch:
		assert.Equal(t, path, ev.Path, "Changed file should match")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for change of %s", path)
	}
	return Event{}
}

func expectQuiet(t *testing.T, ch chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("Received unexpected change notification for %s", ev.Path)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestFileWatcher(t *testing.T) {
	tempDir := t.TempDir()
	changeCh := newTestWatcher(t, tempDir,
		WithExtensions([]string{".txt"}),
		WithPatterns([]string{"*.html"}),
	)

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("Hello, World!"), 0644))
	ev := expectChange(t, changeCh, testFile)
	assert.True(t, ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write))

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "test.log"), []byte("Log file"), 0644))
	expectQuiet(t, changeCh)

	page := filepath.Join(tempDir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<html></html>"), 0644))
	expectChange(t, changeCh, page)

	require.NoError(t, os.WriteFile(testFile, []byte("Updated content"), 0644))
	expectChange(t, changeCh, testFile)
}

func TestFileWatcherDebouncesBursts(t *testing.T) {
	tempDir := t.TempDir()
	changeCh := newTestWatcher(t, tempDir, WithExtensions([]string{".go"}))

	file := filepath.Join(tempDir, "main.go")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	expectChange(t, changeCh, file)
	expectQuiet(t, changeCh)
}

func TestFileWatcherRecursive(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "pkg", "api")
	require.NoError(t, os.MkdirAll(existing, 0755))

	changeCh := newTestWatcher(t, tempDir, WithExtensions([]string{".go"}))

	file := filepath.Join(existing, "api.go")
	require.NoError(t, os.WriteFile(file, []byte("package api\n"), 0644))
	expectChange(t, changeCh, file)

	created := filepath.Join(tempDir, "internal")
	require.NoError(t, os.Mkdir(created, 0755))
	// Give the watcher a moment to pick up the new folder.
	time.Sleep(200 * time.Millisecond)

	nested := filepath.Join(created, "util.go")
	require.NoError(t, os.WriteFile(nested, []byte("package internal\n"), 0644))
	expectChange(t, changeCh, nested)
}

func TestFileWatcherIgnoredFolders(t *testing.T) {
	tempDir := t.TempDir()
	vendor := filepath.Join(tempDir, "vendor", "lib")
	require.NoError(t, os.MkdirAll(vendor, 0755))

	changeCh := newTestWatcher(t, tempDir,
		WithExtensions([]string{".go"}),
		WithIgnoredFolders([]string{"vendor", "tmp"}),
	)

	require.NoError(t, os.WriteFile(filepath.Join(vendor, "lib.go"), []byte("package lib\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "tmp"), 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "tmp", "gen.go"), []byte("package tmp\n"), 0644))
	expectQuiet(t, changeCh)

	file := filepath.Join(tempDir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0644))
	expectChange(t, changeCh, file)
}

func TestIsWatchedFile(t *testing.T) {
	fw, err := New(WithExtensions([]string{" .go", ".tmpl "}), WithPatterns([]string{"go.mod"}))
	require.NoError(t, err)
	defer fw.Stop()

	assert.True(t, fw.isWatchedFile("/src/main.go"))
	assert.True(t, fw.isWatchedFile("/src/views/page.tmpl"))
	assert.True(t, fw.isWatchedFile("/src/go.mod"))
	assert.False(t, fw.isWatchedFile("/src/go.sum"))
	assert.False(t, fw.isWatchedFile("/src/main.go~"))

	all, err := New()
	require.NoError(t, err)
	defer all.Stop()
	assert.True(t, all.isWatchedFile("/anything/at/all"))
}

func TestStopTwice(t *testing.T) {
	fw, err := New(WithRoot(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}

package cli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightforgemedia/go-refresh/pkg/manager"
	"github.com/lightforgemedia/go-refresh/pkg/testutil"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(ctx context.Context, args ...string) (stdout, logs *syncBuffer, err error) {
	stdout, logs = &syncBuffer{}, &syncBuffer{}
	root := NewRootCmd(logs)
	root.SetOut(stdout)
	root.SetErr(logs)
	if len(args) > 0 {
		args = append([]string{args[0], "--no-color"}, args[1:]...)
	}
	root.SetArgs(args)
	err = root.ExecuteContext(ctx)
	return stdout, logs, err
}

func TestInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh.yml")

	_, logs, err := execute(context.Background(), "init", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Configuration written")

	c, err := manager.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, manager.DefaultConfig().IgnoredFolders, c.IgnoredFolders)
	assert.Equal(t, 100*time.Millisecond, c.BuildDelay)

	_, _, err = execute(context.Background(), "init", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(context.Background(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "refresh "), out.String())
}

func TestRunWithMissingConfig(t *testing.T) {
	_, _, err := execute(context.Background(), "run", "-c", filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListenArguments(t *testing.T) {
	_, _, err := execute(context.Background(), "listen")
	assert.Error(t, err)

	_, _, err = execute(context.Background(), "listen", "ftp://example.com")
	assert.Error(t, err)

	_, _, err = execute(context.Background(), "listen", "http://a", "http://b")
	assert.Error(t, err)
}

// listenUntilDone runs listen in the background and notifies until it returns.
func listenUntilDone(t *testing.T, rs *testutil.ReloadServer, args ...string) (*syncBuffer, *syncBuffer) {
	t.Helper()

	type result struct {
		out, logs *syncBuffer
		err       error
	}
	done := make(chan result, 1)
	go func() {
		out, logs, err := execute(context.Background(), append([]string{"listen"}, args...)...)
		done <- result{out, logs, err}
	}()

	require.NoError(t, testutil.WaitForClients(t, rs, 1, 5*time.Second))

	deadline := time.After(10 * time.Second)
	for {
		rs.Server.NotifyRestart()
		select {
		case r := <-done:
			require.NoError(t, r.err)
			return r.out, r.logs
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("listen did not return after a restart")
		}
	}
}

func TestListenPrintsReload(t *testing.T) {
	rs := testutil.NewReloadServer(t)

	out, _ := listenUntilDone(t, rs, rs.URLs.SSE, "--once", "-v", "4")
	assert.Equal(t, "refresh: reload\n", out.String())
}

func TestListenRunsCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	rs := testutil.NewReloadServer(t)
	marker := filepath.Join(t.TempDir(), "reloaded")

	listenUntilDone(t, rs, rs.URLs.WS, "--once", "--", "sh", "-c", "echo done > "+marker)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(data))
}

func TestListenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := execute(ctx, "listen", "http://127.0.0.1:1/", "--retry", "50ms")
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop on cancel")
	}
}

package manager

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
	"github.com/lightforgemedia/go-refresh/pkg/loghandler"
)

const watchDebounce = 50 * time.Millisecond

// Messages of go build meaning there is nothing to build at all.
var noSourceMessages = []string{
	"no buildable Go source files",
	"no Go files in",
	"build constraints exclude all Go files",
}

func (m *Manager) requestBuild(req BuildRequest) {
	select {
	case m.buildRequests <- req:
		m.logger.Debug("Build requested", "path", req.Path, "event", req.Op)
	default:
		// Another build is already pending
		m.logger.Debug("Build request ignored", "path", req.Path, "event", req.Op)
	}
}

// drainBuildRequests skips build requests until BuildDelay has passed.
func (m *Manager) drainBuildRequests(ctx context.Context, req BuildRequest) {
	// Do not wait for initial build
	if req.Op == opInit {
		m.logger.Debug("drainBuildRequests: Skip init")
		return
	}

	t := time.NewTimer(m.BuildDelay)
	defer t.Stop()
	for {
		select {
		case req = <-m.buildRequests:
			m.logger.Debug("drainBuildRequests: Skip event until timer expires", "path", req.Path, "event", req.Op)
		case <-t.C:
			m.logger.Debug("drainBuildRequests: Timer expired")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) buildArgs() []string {
	args := []string{"build", "-v"}
	args = append(args, m.BuildFlags...)
	args = append(args, "-o", m.FullBuildPath())
	if m.BuildTargetPath != "" {
		args = append(args, m.BuildTargetPath)
	}
	return args
}

func (m *Manager) build(ctx context.Context, req BuildRequest) error {
	now := time.Now()
	m.logger.Info("Building...", "path", req.Path, "event", req.Op)
	m.publish(broker.Event{Topic: broker.TopicBuildStarted, Path: req.Path, Op: req.Op})

	cmd := exec.CommandContext(ctx, "go", m.buildArgs()...)
	cmd.Dir = m.AppRoot

	stderr, err := m.startCmd(cmd, nil, nil)
	if err == nil {
		err = waitCmd(cmd, stderr)
	}
	if err != nil {
		if isNoSource(err) {
			m.logger.Log(ctx, loghandler.LevelFatal, "Unable to build", "error", err)
			m.cancel(fmt.Errorf("%w: %s", ErrNoBuildableSource, strings.TrimSpace(err.Error())))
			return err
		}
		m.publish(broker.Event{Topic: broker.TopicBuildFailed, Path: req.Path, Op: req.Op, Error: err.Error()})
		return err
	}

	tt := time.Since(now)
	m.logger.Debug("Build complete", "pid", cmd.Process.Pid, "duration", tt)
	m.publish(broker.Event{Topic: broker.TopicBuildSucceeded, Path: req.Path, Op: req.Op, Duration: tt})

	select {
	case m.restart <- struct{}{}:
	case <-ctx.Done():
	}
	return nil
}

func isNoSource(err error) bool {
	msg := err.Error()
	for _, s := range noSourceMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

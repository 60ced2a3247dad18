package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lightforgemedia/go-refresh/pkg/broker"
)

// stopTimeout is how long a process may take to exit after SIGTERM.
var stopTimeout = 10 * time.Second

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func (m *Manager) runner(ctx context.Context) {
	var proc *process
	stopProcess := func() {
		if proc == nil {
			return
		}
		pid := proc.cmd.Process.Pid
		m.logger.Info("Stopping process", "pid", pid)
		_ = proc.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-proc.exited:
		case <-time.After(stopTimeout):
			m.logger.Warn("Process did not stop, killing it", "pid", pid)
			_ = proc.cmd.Process.Kill()
			<-proc.exited
		}
		m.publish(broker.Event{Topic: broker.TopicProcessStopped, PID: pid})
		proc = nil
	}

	for {
		select {
		case <-m.restart:
			stopProcess()

			cmd := m.processCommand()
			stderr, err := m.startCmd(cmd, m.appStdin(), m.processEnv())
			if err != nil {
				m.logger.Error("Unable to start process", "error", err)
				continue
			}
			m.logger.Info("Starting process", "pid", cmd.Process.Pid)

			p := &process{cmd: cmd, exited: make(chan struct{})}
			go func() {
				defer close(p.exited)
				if err := waitCmd(cmd, stderr); err != nil {
					m.logger.Error(err.Error())
				}
			}()
			proc = p

			m.publish(broker.Event{Topic: broker.TopicProcessStarted, PID: cmd.Process.Pid})
			m.publish(broker.Event{Topic: broker.TopicRestart, PID: cmd.Process.Pid})
		case <-ctx.Done():
			stopProcess()
			return
		}
	}
}

// processCommand runs the built binary, under dlv in debug mode.
func (m *Manager) processCommand() *exec.Cmd {
	bp := m.FullBuildPath()
	if abs, err := filepath.Abs(bp); err == nil {
		bp = abs
	}
	if m.Debug {
		args := []string{"exec", bp}
		if len(m.CommandFlags) > 0 {
			args = append(args, "--")
			args = append(args, m.CommandFlags...)
		}
		return exec.Command("dlv", args...)
	}
	return exec.Command(bp, m.CommandFlags...)
}

// processEnv is the inherited environment plus CommandEnv and the live
// reload endpoints. Later entries win.
func (m *Manager) processEnv() []string {
	env := os.Environ()
	env = append(env, m.CommandEnv...)
	return append(env, m.liveReloadEnv()...)
}

// appStdin is the input of the supervised process. Only one process at a
// time may read it.
func (m *Manager) appStdin() io.Reader {
	if m.Stdin == nil {
		return os.Stdin
	}
	return m.Stdin
}

// startCmd wires stdin and the configured output and starts cmd. A nil stdin
// reads from the null device. The returned buffer collects stderr for error
// messages.
func (m *Manager) startCmd(cmd *exec.Cmd, stdin io.Reader, env []string) (*bytes.Buffer, error) {
	cmd.Stdin = stdin
	cmd.Stdout = m.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	errOut := m.Stderr
	if errOut == nil {
		errOut = os.Stderr
	}

	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(&stderr, errOut)
	if env != nil {
		cmd.Env = env
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s\n%s", err, stderr.String())
	}

	m.logger.Debug("Running: "+strings.Join(cmd.Args, " "), "pid", cmd.Process.Pid)
	return &stderr, nil
}

func waitCmd(cmd *exec.Cmd, stderr *bytes.Buffer) error {
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s\n%s", err, stderr.String())
	}
	return err
}

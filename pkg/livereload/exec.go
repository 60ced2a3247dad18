package livereload

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ExecReloader runs a command for every reload, for pages that are not
// driven from Go (a browser extension, an editor preview, a script).
type ExecReloader struct {
	Name   string
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Reload implements Reloader.
func (r *ExecReloader) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(r.Env) != 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s %s: %w", r.Name, strings.Join(r.Args, " "), err)
	}
	return nil
}

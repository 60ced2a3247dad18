package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightforgemedia/go-refresh/pkg/browser"
	"github.com/lightforgemedia/go-refresh/pkg/livereload"
)

type listenOptions struct {
	open  string
	show  bool
	event string
	retry time.Duration
	once  bool
}

func newListenCmd(o *globalOptions) *cobra.Command {
	lo := &listenOptions{}

	cmd := &cobra.Command{
		Use:   "listen <url> [-- command [args...]]",
		Short: "connects to a live reload server and reloads on every restart.",
		Long: `Connects to the live reload endpoint of a running refresh (http(s) for
server-sent events, ws(s) for WebSocket) and reloads when the server restarts.

What is reloaded:
  --open <page>   a browser tab opened on <page>
  -- command      a command run for every reload
  otherwise       a line is printed to stdout`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			var command []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				command = args[dash:]
				args = args[:dash]
			}
			if len(args) != 1 {
				return errors.New("exactly one live reload URL is required")
			}
			if len(command) > 0 && lo.open != "" {
				return errors.New("--open and a command cannot be combined")
			}

			return listen(cmd.Context(), o, lo, args[0], command, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&lo.open, "open", "", "open this page in a browser and reload it")
	cmd.Flags().BoolVar(&lo.show, "show", false, "show the browser window instead of running headless")
	cmd.Flags().StringVar(&lo.event, "event", livereload.DefaultEventName, "name of the restart notification")
	cmd.Flags().DurationVar(&lo.retry, "retry", livereload.DefaultRetryDelay, "delay before reconnecting after an error")
	cmd.Flags().BoolVar(&lo.once, "once", false, "exit after the first reload")
	return cmd
}

// listen runs one client per page lifecycle: a reload ends a client and the
// reloaded page connects with a new one.
func listen(ctx context.Context, o *globalOptions, lo *listenOptions, url string, command []string, stdout, stderr io.Writer) error {
	if _, err := livereload.DialerFor(url); err != nil {
		return err
	}

	reloader, cleanup, err := lo.reloader(ctx, o, command, stdout, stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	for {
		c := livereload.New(url,
			livereload.WithLogger(o.logger),
			livereload.WithReloader(reloader),
			livereload.WithEventName(lo.event),
			livereload.WithRetryDelay(lo.retry),
		)
		if err := c.Start(ctx); err != nil {
			return err
		}

		select {
		case <-c.Done():
		case <-ctx.Done():
		}
		c.Stop()

		if !c.Reloaded() || lo.once || ctx.Err() != nil {
			return nil
		}
	}
}

func (lo *listenOptions) reloader(ctx context.Context, o *globalOptions, command []string, stdout, stderr io.Writer) (livereload.Reloader, func(), error) {
	switch {
	case lo.open != "":
		b, err := browser.Launch(browser.WithHeadless(!lo.show), browser.WithLogger(o.logger))
		if err != nil {
			return nil, nil, err
		}
		page, err := b.Open(ctx, lo.open)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		o.logger.Info("Opened page", "url", lo.open)
		return page, func() {
			page.Close()
			b.Close()
		}, nil

	case len(command) > 0:
		return &livereload.ExecReloader{
			Name:   command[0],
			Args:   command[1:],
			Stdout: stdout,
			Stderr: stderr,
		}, func() {}, nil

	default:
		return livereload.ReloadFunc(func(context.Context) error {
			_, err := fmt.Fprintln(stdout, "refresh: reload")
			return err
		}), func() {}, nil
	}
}

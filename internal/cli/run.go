package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/lightforgemedia/go-refresh/pkg/manager"
)

func newRunCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"r", "start", "build", "watch"},
		Short:   "(default) watches your files and rebuilds/restarts your app accordingly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Do not report errors as wrong usage
			cmd.SilenceUsage = true
			return runManager(cmd.Context(), o)
		},
	}
}

func runManager(ctx context.Context, o *globalOptions) error {
	c, err := manager.LoadConfig(o.cfgFile)
	if err != nil {
		if !errors.Is(err, manager.ErrConfigNotExist) {
			return err
		}
		o.logger.Warn("No configuration loaded, proceeding with defaults")
	}

	if c.Path != "" {
		o.logger.Debug("Configuration loaded", "config", c.Path)
	}
	if !c.EnableColors && !o.noColor {
		o.noColor = true
		o.setupLogger()
	}
	if o.debug {
		c.Debug = true
	}

	m := manager.New(c, manager.WithLogger(o.logger))
	return m.Start(ctx)
}

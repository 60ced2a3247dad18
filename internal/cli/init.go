package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightforgemedia/go-refresh/pkg/manager"
)

func newInitCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "generates a default configuration file for you.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Do not report errors as wrong usage
			cmd.SilenceUsage = true

			path := o.cfgFile
			if path == "" {
				path = "refresh.yml"
			}

			if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("config file %q already exists, skipping init", path)
			}

			if err := manager.DefaultConfig().Dump(path); err != nil {
				return err
			}
			o.logger.Info("Configuration written", "config", path)
			return nil
		},
	}
}

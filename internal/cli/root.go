// Package cli implements the refresh command line.
package cli

import (
	"io"
	"log/slog"
	"os"
	dbg "runtime/debug"

	"github.com/spf13/cobra"

	"github.com/lightforgemedia/go-refresh/pkg/loghandler"
)

const logPrefix = "⎯⎯⎯⎯⎯⎯ ⚡️refresh ⎯⎯⎯⎯⎯ "

type globalOptions struct {
	cfgFile   string
	debug     bool
	verbosity int
	noColor   bool

	logOut io.Writer
	logger *slog.Logger
}

func (o *globalOptions) setupLogger() {
	o.logger = slog.New(loghandler.New(o.logOut, &loghandler.Options{
		Level:   loghandler.LevelForVerbosity(o.verbosity),
		Prefix:  logPrefix,
		NoColor: o.noColor,
	}))
	slog.SetDefault(o.logger)
}

// NewRootCmd builds the command tree. Logs go to logOut.
func NewRootCmd(logOut io.Writer) *cobra.Command {
	o := &globalOptions{logOut: logOut}

	root := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh is a command line tool that builds and (re)starts your Go application everytime you save a Go or template file.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			o.setupLogger()
			if info, ok := dbg.ReadBuildInfo(); ok {
				o.logger.Debug("Version " + info.Main.Version)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runManager(cmd.Context(), o)
		},
	}

	root.PersistentFlags().BoolVarP(&o.debug, "debug", "d", false, "use delve to debug the app")
	root.PersistentFlags().StringVarP(&o.cfgFile, "config", "c", "", "path to configuration file")
	root.PersistentFlags().IntVarP(&o.verbosity, "verbosity", "v", 3, "verbosity of log output: 0=fatal, 1=error, 2=warn, 3=info, 4=debug")
	root.PersistentFlags().BoolVar(&o.noColor, "no-color", false, "disable colored log output")

	root.AddCommand(
		newRunCmd(o),
		newInitCmd(o),
		newListenCmd(o),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	ctx, stop := signalContext()
	defer stop()

	if err := NewRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(-1)
	}
}

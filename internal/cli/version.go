package cli

import (
	"fmt"
	dbg "runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "prints the version of refresh.",
		Run: func(cmd *cobra.Command, args []string) {
			version := "(devel)"
			if info, ok := dbg.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
			fmt.Fprintln(cmd.OutOrStdout(), "refresh", version)
		},
	}
}

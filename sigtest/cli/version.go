package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/sigmatest/sigtest"
)

var (
	commit = "none"
	date   = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sigtest %s\n", sigtest.Version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built: %s\n", date)
		},
	}
}

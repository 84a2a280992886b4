package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered suites and cases",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, s := range a.reg.Suites() {
				fmt.Fprintf(out, "%s (%d)\n", s.Name, s.Len())
				for _, c := range s.Cases() {
					kind := c.Kind().String()
					if c.IsFuzz() {
						kind = fmt.Sprintf("fuzz[%d]", c.Dataset().Len())
					}
					fmt.Fprintf(out, "  %-40s %s\n", c.Name, kind)
				}
			}
		},
	}
}

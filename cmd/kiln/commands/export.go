package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <target>",
		Short: "Print the portable analysis of a compiled target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Export(cmd.Context(), args[0], cmd.OutOrStdout(), dirOptions(cmd))
		},
	}
}

package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove compiled output and analysis records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}
			switch {
			case all:
				opts.Work = true
				opts.Cache = true
			case cache:
				opts.Cache = true
			default:
				// Default behavior: clean build outputs
				opts.Work = true
			}

			return c.app.Clean(cmd.Context(), opts, dirOptions(cmd))
		},
	}

	cmd.Flags().BoolP("cache", "c", false, "Clean the bootstrapped compiler cache")
	cmd.Flags().BoolP("all", "a", false, "Clean build outputs and the compiler cache")

	return cmd
}

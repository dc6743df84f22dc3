package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compile [targets...]",
		Aliases: []string{"build"},
		Short:   "Compile targets and their dependencies (all targets when none are named)",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := dirOptions(cmd)
			flags := cmd.Flags()

			if flags.Changed("fatal-warnings") || flags.Changed("no-fatal-warnings") {
				noFatal, _ := flags.GetBool("no-fatal-warnings")
				fatal := !noFatal
				opts.FatalWarnings = &fatal
			}
			opts.DebugSymbols, _ = flags.GetBool("debug-symbols")
			opts.CompilerArgs, _ = flags.GetStringArray("compiler-arg")
			opts.PoolSize, _ = flags.GetInt("pool-size")
			opts.Parallelism, _ = flags.GetInt("parallelism")
			opts.Jar, _ = flags.GetBool("jar")
			opts.ExportPortable, _ = flags.GetBool("export-analysis")
			opts.Timeout, _ = flags.GetDuration("timeout")

			build, err := c.app.Build(cmd.Context(), args, opts)
			if build != nil {
				printResults(cmd.OutOrStdout(), build)
			}
			return err
		},
	}
	cmd.Flags().Bool("fatal-warnings", false, "Treat compiler warnings as errors")
	cmd.Flags().Bool("no-fatal-warnings", false, "Do not treat compiler warnings as errors")
	cmd.MarkFlagsMutuallyExclusive("fatal-warnings", "no-fatal-warnings")
	cmd.Flags().Bool("debug-symbols", false, "Emit full debug information in class files")
	cmd.Flags().StringArray("compiler-arg", nil, "Extra compiler argument (repeatable)")
	cmd.Flags().Int("pool-size", 0, "Number of warm compiler workers (default: number of CPUs)")
	cmd.Flags().IntP("parallelism", "j", 0, "Number of targets compiled at once (default: number of CPUs)")
	cmd.Flags().Bool("jar", false, "Package each compiled target into a jar")
	cmd.Flags().Bool("export-analysis", false, "Write a portable analysis next to each record")
	cmd.Flags().Duration("timeout", 0, "Per-target limit on waiting for a worker and compiling")
	return cmd
}

func printResults(w io.Writer, build *domain.BuildResult) {
	for _, res := range build.Targets {
		line := fmt.Sprintf("%-9s %s", res.State, res.Target)
		switch {
		case res.State == domain.StateSucceeded && len(res.Invalidated) == 0:
			line += " (up to date)"
		case res.State == domain.StateSucceeded:
			line += fmt.Sprintf(" (%d source(s) compiled)", len(res.Invalidated))
		}
		if res.Jar != "" {
			line += " -> " + res.Jar
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

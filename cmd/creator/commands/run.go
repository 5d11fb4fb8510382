package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/creator/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [targets and tasks...]",
		Short: "Export the build file, then build targets and run tasks in order",
		Long: "Export the build file, then build targets and run tasks in the order given.\n" +
			"Without arguments the default targets are built.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			load, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			noExport, _ := cmd.Flags().GetBool("no-export")
			dry, _ := cmd.Flags().GetBool("dry")
			ninjaArgs, _ := cmd.Flags().GetStringArray("args")
			verbose, _ := cmd.Flags().GetBool("verbose")
			jsonLogs, _ := cmd.Flags().GetBool("json")
			quiet, _ := cmd.Flags().GetBool("quiet")

			if verbose {
				ninjaArgs = append([]string{"-v"}, ninjaArgs...)
			}

			opts := app.RunOptions{
				LoadOptions: load,
				NoExport:    noExport,
				Dry:         dry,
				NinjaArgs:   ninjaArgs,
			}
			if !jsonLogs && !quiet {
				opts.Progress = cmd.ErrOrStderr()
			}
			return c.app.Run(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().BoolP("no-export", "n", false, "Use the existing build file instead of exporting it")
	cmd.Flags().BoolP("dry", "d", false, "Print the planned steps without running them")
	cmd.Flags().StringArrayP("args", "a", nil, "Pass an extra argument to ninja")
	return cmd
}

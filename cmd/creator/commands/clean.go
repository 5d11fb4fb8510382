package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/creator/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Remove build outputs",
		Long: "Remove the outputs of the named targets.\n" +
			"Without arguments every output, the build file and the export state are removed.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			load, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Clean(cmd.Context(), args, app.CleanOptions{LoadOptions: load})
		},
	}
}

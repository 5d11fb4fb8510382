package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/creator/internal/app"
)

func (c *CLI) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ninja build file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			return c.app.Export(cmd.Context(), app.ExportOptions{LoadOptions: load, Output: output})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the build file to this path")
	return cmd
}

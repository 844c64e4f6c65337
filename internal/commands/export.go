package commands

import (
	"github.com/spf13/cobra"

	"github.com/accountantiq-dev/accountantiq/internal/export"
)

func newExportCommand(configPath *string) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "export <client-slug>",
		Short: "Write decided items to an accounts-package CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			res, err := eng.Export(args[0], profile)
			if err != nil {
				return err
			}
			cmd.Printf("Exported %d row(s) to %s\n", res.Rows, res.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", export.DefaultProfileName, "export profile name")

	return cmd
}

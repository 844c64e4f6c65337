package commands

import (
	"github.com/spf13/cobra"
)

func newInitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init <client-slug>",
		Short: "Bootstrap a client workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			if err := eng.InitClient(args[0]); err != nil {
				return err
			}
			cmd.Printf("Initialized client %q under %s\n", args[0], cfg.DataRoot)
			return nil
		},
	}
}

package commands

import (
	"github.com/spf13/cobra"
)

func newApproveCommand(configPath *string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "approve <client-slug> <txn-id>",
		Short: "Approve a pending item's suggested coding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			item, err := eng.ApproveItem(args[0], args[1], note)
			if err != nil {
				return err
			}
			cmd.Printf("Approved %s as %s/%s\n", item.Txn.ID, item.NominalFinal, item.TaxCodeFinal)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "reviewer note recorded with the approval")

	return cmd
}

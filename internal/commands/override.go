package commands

import (
	"github.com/spf13/cobra"
)

func newOverrideCommand(configPath *string) *cobra.Command {
	var nominal string
	var taxCode string
	var note string

	cmd := &cobra.Command{
		Use:   "override <client-slug> <txn-id>",
		Short: "Record corrected coding for an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			item, err := eng.OverrideItem(args[0], args[1], nominal, taxCode, note)
			if err != nil {
				return err
			}
			cmd.Printf("Overrode %s to %s/%s\n", item.Txn.ID, item.NominalFinal, item.TaxCodeFinal)
			return nil
		},
	}

	cmd.Flags().StringVar(&nominal, "nominal", "", "corrected nominal code (required)")
	_ = cmd.MarkFlagRequired("nominal")
	cmd.Flags().StringVar(&taxCode, "tax-code", "", "corrected tax code (required)")
	_ = cmd.MarkFlagRequired("tax-code")
	cmd.Flags().StringVar(&note, "note", "", "reviewer note recorded with the override")

	return cmd
}

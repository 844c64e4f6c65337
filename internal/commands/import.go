package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCommand(configPath *string) *cobra.Command {
	var bankPath string
	var historyPath string
	var reset bool
	var autoCreate bool

	cmd := &cobra.Command{
		Use:   "import <client-slug>",
		Short: "Import bank and history CSV exports and refresh the review queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := os.ReadFile(bankPath)
			if err != nil {
				return fmt.Errorf("reading bank export: %w", err)
			}
			history, err := os.ReadFile(historyPath)
			if err != nil {
				return fmt.Errorf("reading history export: %w", err)
			}

			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			res, err := eng.ImportReview(args[0], string(bank), string(history), reset, autoCreate)
			if err != nil {
				return err
			}

			cmd.Printf("Imported %d transaction(s) into the review queue\n", len(res.Items))
			for _, s := range res.Skipped {
				cmd.Printf("  skipped: %s\n", s)
			}
			if res.RulesCreated > 0 {
				cmd.Printf("Auto-created %d rule(s) from confident suggestions\n", res.RulesCreated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bankPath, "bank", "", "bank export CSV (required)")
	_ = cmd.MarkFlagRequired("bank")
	cmd.Flags().StringVar(&historyPath, "history", "", "coded history CSV (required)")
	_ = cmd.MarkFlagRequired("history")
	cmd.Flags().BoolVar(&reset, "reset", false, "return decided items to pending with fresh suggestions")
	cmd.Flags().BoolVar(&autoCreate, "auto-create-rules", false, "promote confident suggestions into rules")

	return cmd
}

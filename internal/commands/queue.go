package commands

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

var percent = decimal.NewFromInt(100)

func newQueueCommand(configPath *string) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "queue <client-slug>",
		Short: "Show the client's review queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			items, err := eng.GetQueue(args[0])
			if err != nil {
				return err
			}

			shown := 0
			for _, item := range items {
				if pendingOnly && item.Status != model.StatusPending {
					continue
				}
				shown++
				cmd.Printf("%s  %s  %8s %-6s  %s\n",
					item.Txn.ID,
					item.Txn.Date.Format("2006-01-02"),
					item.Txn.Amount.StringFixed(2),
					item.Status,
					item.Txn.DescriptionRaw,
				)
				if item.Suggestion.Nominal != "" {
					cmd.Printf("    suggests %s/%s (%s%%)\n",
						item.Suggestion.Nominal,
						item.Suggestion.TaxCode,
						item.Suggestion.Confidence.Mul(percent).Round(0),
					)
				}
				if len(item.Suggestion.Explanations) > 0 {
					cmd.Printf("    %s\n", strings.Join(item.Suggestion.Explanations, "; "))
				}
			}
			cmd.Printf("%d item(s)\n", shown)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "show only pending items")

	return cmd
}

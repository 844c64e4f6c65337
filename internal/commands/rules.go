package commands

import (
	"github.com/spf13/cobra"
)

func newRulesCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage a client's categorization rules",
	}

	cmd.AddCommand(newRulesAddCommand(configPath))
	cmd.AddCommand(newRulesListCommand(configPath))
	cmd.AddCommand(newRulesBackfillCommand(configPath))

	return cmd
}

func newRulesAddCommand(configPath *string) *cobra.Command {
	var name string
	var pattern string
	var nominal string
	var taxCode string

	cmd := &cobra.Command{
		Use:   "add <client-slug>",
		Short: "Append a rule to the client's rule store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			if err := eng.AppendRule(args[0], name, pattern, nominal, taxCode); err != nil {
				return err
			}
			cmd.Printf("Added rule %q for %s\n", name, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&pattern, "pattern", "", "case-insensitive regex matched against descriptions (required)")
	_ = cmd.MarkFlagRequired("pattern")
	cmd.Flags().StringVar(&nominal, "nominal", "", "nominal code the rule assigns (required)")
	_ = cmd.MarkFlagRequired("nominal")
	cmd.Flags().StringVar(&taxCode, "tax-code", "", "tax code the rule assigns")

	return cmd
}

func newRulesListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <client-slug>",
		Short: "Show the client's rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			all, err := eng.Rules(args[0])
			if err != nil {
				return err
			}
			for _, r := range all {
				cmd.Printf("%-24s %s/%s  %s\n", r.Name, r.Nominal, r.TaxCode, r.Pattern)
			}
			cmd.Printf("%d rule(s)\n", len(all))
			return nil
		},
	}
}

func newRulesBackfillCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill <client-slug>",
		Short: "Create rules from decided review items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(*configPath)
			if err != nil {
				return err
			}

			created, err := eng.BackfillRules(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Created %d rule(s) from decided items\n", created)
			return nil
		},
	}
}

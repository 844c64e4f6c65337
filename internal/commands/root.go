// Package commands wires the CLI surface over the engine. Every
// subcommand is a thin wrapper: load config, build the engine, run one
// engine operation, print the result.
package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/accountantiq-dev/accountantiq/internal/buildinfo"
	"github.com/accountantiq-dev/accountantiq/internal/config"
	"github.com/accountantiq-dev/accountantiq/internal/engine"
	"github.com/accountantiq-dev/accountantiq/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "accountantiq",
		Short:   "Suggestion-and-review engine for client bookkeeping",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "accountantiq.yaml", "path to the configuration file")

	rootCmd.AddCommand(newInitCommand(&configPath))
	rootCmd.AddCommand(newImportCommand(&configPath))
	rootCmd.AddCommand(newQueueCommand(&configPath))
	rootCmd.AddCommand(newApproveCommand(&configPath))
	rootCmd.AddCommand(newOverrideCommand(&configPath))
	rootCmd.AddCommand(newRulesCommand(&configPath))
	rootCmd.AddCommand(newExportCommand(&configPath))
	rootCmd.AddCommand(newServeCommand(&configPath))

	return rootCmd
}

// buildEngine loads configuration and constructs the engine behind
// every subcommand.
func buildEngine(configPath string) (*engine.Engine, *config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}

	opts := engine.DefaultOptions()
	opts.Matcher.MinSimilarity = cfg.Matcher.MinSimilarity
	opts.AutoCreateFloor = decimal.NewFromFloat(cfg.Matcher.AutoCreateFloor)

	return engine.New(cfg.DataRoot, opts, logger.New()), cfg, nil
}

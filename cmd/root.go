package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/towerstats/analyzer-cli/internal/config"
	"github.com/towerstats/analyzer-cli/internal/report"
	"github.com/towerstats/analyzer-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "analyzer-cli",
	Short: "Battle report analysis engine",
	Long:  "Parses battle report text dumps, tracks entity stat revisions, derives rates and effect metrics, and validates chart configurations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore dials the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.SQLitePath)
}

// loadSchema returns the label schema from cfg.Schema.Path, or the built-in
// rules when no path is configured.
func loadSchema() (*report.LabelSchema, error) {
	if cfg.Schema.Path == "" {
		return report.DefaultSchema(), nil
	}

	f, err := os.Open(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	rules, err := report.LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("load schema rules: %w", err)
	}
	return report.NewSchema(rules)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

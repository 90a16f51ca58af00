// Package cli implements the hearthquest command line with Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/app"
	"github.com/kasuganosora/hearthquest/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hearthquest",
	Short: "hearthquest: household chores as quests",
	Long: `hearthquest turns family chores into quests. Guardians approve completed
quests; approvals pay experience and gold, level characters up and extend
streaks, and boss battles rank the household.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml",
		"YAML config file; empty uses defaults and HEARTHQUEST_* environment only")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// open loads the config and assembles the application. The caller must
// Close the app and Sync the logger.
func open() (*app.App, *zap.Logger, error) {
	path := configPath
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

// Package main is the entry point for the pricelens service and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg *config.Config
	log *zap.Logger
)

// rootCmd is the base command for the pricelens CLI.
var rootCmd = &cobra.Command{
	Use:   "pricelens",
	Short: "Compare grocery prices across Dutch supermarkets",
	Long: `pricelens searches several supermarkets at once and returns one
unit-normalized result set per query.

Configuration is read from config.yaml, a .env file and PRICELENS_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}

		log, err = logger.New("pricelens", logger.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Dir:    cfg.Log.Dir,
			Output: cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command fintrackctl is the operator CLI: schema migrations, offline imports
// and template generation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "fintrackctl",
	Short:         "Fintrack operator tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(templateCmd())
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase loads configuration and connects to the configured database.
func openDatabase() (*database.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	mgr, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return mgr, nil
}

func closeDatabase(mgr *database.Manager) {
	if err := mgr.Close(); err != nil {
		logger.Get().Warnw("database close failed", "error", err)
	}
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"fintrack/internal/database"
	"fintrack/internal/logger"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the embedded SQL migrations.

SQLite databases are managed from the models, so only "up" is available for them.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [N]",
		Short: "Roll back N migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE:  runMigrateVersion,
	})
	return cmd
}

func runMigrateUp(_ *cobra.Command, _ []string) error {
	mgr, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(mgr)

	return mgr.RunMigrations()
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps < 1 {
		return 0, fmt.Errorf("invalid step count %q", args[0])
	}
	return steps, nil
}

func runMigrateDown(_ *cobra.Command, args []string) error {
	steps, err := parseSteps(args)
	if err != nil {
		return err
	}

	mgr, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(mgr)

	mig, err := mgr.Migrator()
	if err != nil {
		return err
	}
	defer database.CloseMigrator(mig)

	if err := mig.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	logger.Get().Infof("Rolled back %d migration(s)", steps)
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	mgr, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(mgr)

	mig, err := mgr.Migrator()
	if err != nil {
		return err
	}
	defer database.CloseMigrator(mig)

	version, dirty, err := mig.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Version: %d, Dirty: %v\n", version, dirty)
	return nil
}

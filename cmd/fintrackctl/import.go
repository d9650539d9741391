package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fintrack/internal/services"
)

func importCmd() *cobra.Command {
	var userID uint
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a .csv or .xlsx file of transactions for a user",
		Long: `Run the same row validation as the upload endpoint and store the valid rows.
The import report is printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(mgr)

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			db := mgr.DB()
			importService := services.NewImportService(db, services.NewAuditService(db))
			report, err := importService.ImportFile(userID, filepath.Base(file), f, "cli")
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "ID of the user who owns the imported transactions")
	cmd.Flags().StringVar(&file, "file", "", "path to the .csv or .xlsx file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

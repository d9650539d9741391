package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/importer"
	"fintrack/internal/models"
)

func templateCmd() *cobra.Command {
	var out string
	var userID uint

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the XLSX upload template",
		Long: `Write the import template. With --user the category sheet lists that user's
categories; without it the sheet is left empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var categories []models.Category
			if userID != 0 {
				mgr, err := openDatabase()
				if err != nil {
					return err
				}
				defer closeDatabase(mgr)
				if err := mgr.DB().Where("user_id = ?", userID).Order("id ASC").Find(&categories).Error; err != nil {
					return fmt.Errorf("failed to load categories: %w", err)
				}
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := importer.WriteTemplate(f, categories, time.Now()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "transaction_template.xlsx", "output path")
	cmd.Flags().UintVar(&userID, "user", 0, "list this user's categories in the template")
	return cmd
}

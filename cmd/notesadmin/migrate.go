package main

import (
	"studynotes/config"
	"studynotes/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the courses, content_items and engagement tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, func(db *gorm.DB) error {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
				return writePlain(cmd.OutOrStdout(), "migrations applied\n")
			})
		},
	}
}

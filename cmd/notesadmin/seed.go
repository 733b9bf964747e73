package main

import (
	"studynotes/config"
	"studynotes/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default course catalog; existing codes are skipped",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, func(db *gorm.DB) error {
				result, err := database.Seed(cmd.Context(), db, database.DefaultSeedCourses())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				return writePlain(cmd.OutOrStdout(), "seeded %d courses (%d already present)\n", len(result.Created), len(result.Skipped))
			})
		},
	}
}

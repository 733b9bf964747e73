package main

import (
	"time"

	"studynotes/config"
	"studynotes/internal/repository"
	"studynotes/internal/services"
	"studynotes/internal/storage"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openBlobs is swapped out by tests.
var openBlobs = storage.Open

func newOrphansCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Inspect blobs left behind by failed submissions",
	}
	cmd.AddCommand(newOrphansSweepCmd(cfg, jsonOutput))
	return cmd
}

func newOrphansSweepCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		dryRun bool
		prefix string
		grace  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete blobs that no content item references",
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, closeBlobs, err := openBlobs(cmd.Context(), cfg.ObjectStore)
			if err != nil {
				return err
			}
			defer func() { _ = closeBlobs() }()

			return withDB(cfg, func(db *gorm.DB) error {
				sweeper := services.NewOrphanSweeper(blobs, repository.NewContentRepository(db), cliLogger(cfg), grace)
				report, err := sweeper.Sweep(cmd.Context(), services.SweepOptions{Prefix: prefix, DryRun: dryRun})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				if report.DryRun {
					return writePlain(cmd.OutOrStdout(), "dry run: scanned %d blobs, %d orphaned\n", report.Scanned, report.Orphaned)
				}
				return writePlain(cmd.OutOrStdout(), "scanned %d blobs, deleted %d of %d orphaned (%d failed)\n",
					report.Scanned, report.Deleted, report.Orphaned, report.Failed)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only scan blobs under this key prefix")
	cmd.Flags().DurationVar(&grace, "grace", cfg.Upload.OrphanGracePeriod, "skip blobs modified more recently than this")
	return cmd
}

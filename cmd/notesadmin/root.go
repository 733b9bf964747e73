package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"studynotes/config"
	"studynotes/internal/redis"
	"studynotes/internal/services"
	"studynotes/pkg/database"
	"studynotes/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openDB is swapped out by tests.
var openDB = database.Connect

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:           "notesadmin",
		Short:         "Administrative tasks for the study notes service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newMigrateCmd(cfg),
		newSeedCmd(cfg, &jsonOutput),
		newCoursesCmd(cfg, &jsonOutput),
		newOrphansCmd(cfg, &jsonOutput),
	)
	return cmd
}

func withDB(cfg *config.Config, fn func(db *gorm.DB) error) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}
	return fn(db)
}

// openCatalogCache returns the shared course cache so CLI writes are seen by
// running API instances, or nil when Redis is not reachable.
func openCatalogCache(ctx context.Context, cfg *config.Config, l *logger.Logger) (services.CatalogCache, func()) {
	if cfg.RedisHost == "" {
		return nil, func() {}
	}
	client := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(ctx, client); err != nil {
		l.Debug("redis unreachable, skipping catalog cache", "error", err)
		_ = client.Close()
		return nil, func() {}
	}
	return redis.NewCacheStore(client, redis.DefaultCacheConfig()), func() { _ = client.Close() }
}

func cliLogger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg.AppMode)
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

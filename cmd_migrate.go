package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"nixbot/internal/config"
	"nixbot/internal/logger"
	"nixbot/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.New(cfg)
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info().Str("driver", cfg.BasicConfig.Database).Msg("database schema is up to date")
		return nil
	},
}

// openDatabase connects to the configured driver and applies the schema.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	driver := cfg.BasicConfig.Database
	db, err := storage.Open(driver, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Command migrate applies database migrations without starting the server.
// Useful for deploy pipelines that migrate before rolling the service.
package main

import (
	"os"
	"path/filepath"

	"github.com/lumen-tv/lumen/internal/config"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to get SQL database handle")
	}

	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	logger.Log.Info().
		Str("db_path", cfg.Database.Path).
		Str("migrations", cfg.Database.MigrationsPath).
		Msg("Migrations applied")
}

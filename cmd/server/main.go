package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lumen-tv/lumen/internal/config"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet, write directly to stderr
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	logger.Log.Info().
		Str("db_path", cfg.Database.Path).
		Msg("Lumen scheduler starting")

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to get SQL database handle")
	}
	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	logger.Log.Info().Msg("Database migrations applied")

	srv := server.New(cfg, database)

	// Run the server in a goroutine so shutdown signals can be handled
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
		os.Exit(1)
	}
}

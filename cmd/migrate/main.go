// migrate runs the GORM auto-migrations and exits.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/photofeed/backend/internal/config"
	"github.com/photofeed/backend/internal/database"
	"github.com/photofeed/backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), "migrate.log"); err != nil {
		os.Exit(1)
	}
	defer logger.Close()

	cfg := config.Load()

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}

	logger.Log.Info("Migrations applied")
}

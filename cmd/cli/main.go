// photofeedctl is the operator CLI for the like engine: on-demand
// reconciliation, recovery of the counter store from Postgres, and dev
// seeding. Every command talks to the stores directly, not to the API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/photofeed/backend/internal/cache"
	"github.com/photofeed/backend/internal/config"
	"github.com/photofeed/backend/internal/database"
	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "photofeedctl",
	Short: "Photofeed operator CLI - reconcile and recover like counters",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if err := logger.Initialize(os.Getenv("LOG_LEVEL"), "photofeedctl.log"); err != nil {
			return err
		}
		return nil
	},
}

// engine builds the service wiring the commands share.
func engine() (*likes.CounterService, *likes.SyncService, repository.PostRepository, error) {
	cfg := config.Load()

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	likeRepo := repository.NewLikeRepository(database.DB)
	postRepo := repository.NewPostRepository(database.DB)
	counter := likes.NewCounterService(redisClient, likeRepo)
	syncer := likes.NewSyncService(likeRepo, redisClient, postRepo, 1, 64)
	return counter, syncer, postRepo, nil
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

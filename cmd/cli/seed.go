package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/photofeed/backend/internal/database"
	"github.com/photofeed/backend/internal/seed"
)

var (
	seedUsers int
	seedPosts int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with fake users, posts, and likes",
	RunE: func(cmd *cobra.Command, args []string) error {
		counter, _, _, err := engine()
		if err != nil {
			return err
		}
		if err := database.Migrate(); err != nil {
			return err
		}

		opts := seed.DefaultOptions()
		if seedUsers > 0 {
			opts.Users = seedUsers
		}
		if seedPosts > 0 {
			opts.Posts = seedPosts
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := seed.NewSeeder(database.DB, counter, opts).Run(ctx); err != nil {
			return err
		}
		fmt.Println("seeded")
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 0, "Number of users to create")
	seedCmd.Flags().IntVar(&seedPosts, "posts", 0, "Number of posts to create")
}

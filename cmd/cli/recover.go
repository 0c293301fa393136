package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recoverBatch int

var recoverCmd = &cobra.Command{
	Use:   "recover [postID...]",
	Short: "Rebuild live counters and membership sets from Postgres (durable store wins)",
	Long: `The inverse of reconcile: Postgres wins. Rebuilds the Redis counter,
membership set, and reverse indexes for each post from the durable like
rows.

This is last-writer-wins seeding. Running it against a warm, correct Redis
erases toggles that race it — use only after Redis data loss or at cold
start, ideally with writes quiesced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		counter, _, posts, err := engine()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		postIDs := args
		if len(postIDs) == 0 {
			postIDs, err = posts.SamplePostIDs(ctx, recoverBatch)
			if err != nil {
				return fmt.Errorf("list posts: %w", err)
			}
		}

		if err := counter.InitializeFromDurable(ctx, postIDs); err != nil {
			return err
		}
		fmt.Printf("recovered %d posts from the durable store\n", len(postIDs))
		return nil
	},
}

func init() {
	recoverCmd.Flags().IntVar(&recoverBatch, "batch", 10000, "How many posts to recover when no IDs are given")
}

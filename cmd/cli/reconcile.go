package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reconcileSample int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [postID...]",
	Short: "Compare live counters against Postgres and correct drifted durable counts",
	Long: `Runs the steady-state reconciliation policy: the Redis counter wins and
the durable like_count column is corrected to match. With post IDs it
reconciles exactly those posts; without, a random sample.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, syncer, _, err := engine()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if len(args) > 0 {
			corrected := 0
			for _, postID := range args {
				fixed, err := syncer.ReconcileCounter(ctx, postID)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", postID, err)
				}
				if fixed {
					corrected++
				}
			}
			fmt.Printf("checked %d posts, corrected %d\n", len(args), corrected)
			return nil
		}

		checked, corrected, err := syncer.ReconcileAll(ctx, reconcileSample)
		if err != nil {
			return err
		}
		fmt.Printf("checked %d posts, corrected %d\n", checked, corrected)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileSample, "sample", 500, "How many posts to sample when no IDs are given")
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kgyan/makola/app/jobs"
	"github.com/kgyan/makola/config"
	"github.com/kgyan/makola/pkg/cache"
	"github.com/kgyan/makola/pkg/database"
	"github.com/kgyan/makola/pkg/queue"
)

var queueWorkersFlag int

// makola queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if err := database.Connect(); err != nil {
			return err
		}
		queue.UseDB(database.DB)
		if err := cache.Connect(); err == nil && cache.RDB != nil {
			queue.SetDriver(queue.NewRedisDriver(cache.RDB))
		}
		jobs.RegisterAll()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 5
		}

		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("\nQueue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
}

package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mantralabs/japa-api/internal/cache"
	"github.com/mantralabs/japa-api/internal/config"
	"github.com/mantralabs/japa-api/internal/database"
	"github.com/mantralabs/japa-api/internal/queue"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test backing service connectivity",
		Long:  "Check that the database, Redis and RabbitMQ are reachable with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping: %w", err)
			}
			fmt.Println("✓ Database is reachable")

			cacheStore, err := cache.New(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer func() { _ = cacheStore.Close() }()
			if err := cacheStore.HealthCheck(ctx); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			fmt.Println("✓ Redis is reachable")

			bus, err := queue.NewRabbitMQBus(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("rabbitmq: %w", err)
			}
			defer func() { _ = bus.Close() }()
			if err := bus.HealthCheck(ctx); err != nil {
				return fmt.Errorf("rabbitmq health: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			fmt.Println("\n✓ All backing services are reachable")
			return nil
		},
	}
}

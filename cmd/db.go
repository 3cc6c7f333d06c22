package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-vocab/internal/config"
	"github.com/Taichi-iskw/yt-vocab/internal/store"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the vocabulary database",
}

// dbMigrateCmd applies the schema of the configured backend
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Create or upgrade the schema of the configured sqlite or postgres store.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		switch cfg.Storage {
		case config.StorageMemory:
			cmd.Println("Memory storage has no schema, nothing to migrate")
			return nil
		case config.StoragePostgres:
			if err := store.MigratePostgres(cfg); err != nil {
				return err
			}
		default:
			// opening the sqlite store applies its migrations
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, cleanup, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			cleanup()
		}

		cmd.Printf("Migrations applied to %s store\n", cfg.Storage)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}

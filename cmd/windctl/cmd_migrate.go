package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/queue"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and create the alert topic",
	Long: `Apply every SQL file in DB_MIGRATIONS_DIR in name order. When
KAFKA_BROKERS is set the alert events topic is created as well.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := current.cfg

	db, err := database.Connect(cmd.Context(), cfg.Database.ConnectionString(), current.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(cmd.Context(), cfg.Database.MigrationsDir); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

	if !cfg.Kafka.Enabled() {
		return nil
	}
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, cfg.Kafka.NumPartitions, 1); err != nil {
		return fmt.Errorf("creating topic %s: %w", cfg.Kafka.TopicAlerts, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "topic %s ready\n", cfg.Kafka.TopicAlerts)
	return nil
}

// Command windctl is the operator CLI for the wind alert bot.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

// env is filled in before any subcommand runs
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

var current env

var rootCmd = &cobra.Command{
	Use:   "windctl",
	Short: "Operate the wind alert bot",
	Long: `windctl runs one-off maintenance tasks against the wind alert bot's
database, Redis and Kafka: migrations, manual wind checks, usage stats and
alert cooldowns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		current = env{cfg: cfg, logger: app.Logger(cfg)}
		return nil
	},
}

func main() {
	ctx, stop := app.SignalContext()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

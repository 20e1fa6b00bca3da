package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/internal/bot"
	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/stats"
)

var checkDryRun bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one wind check now",
	Long: `Fetch the current weather and run the alert check once, exactly as the
scheduler would. With --dry-run, alerts are printed instead of sent and
neither cooldowns nor stats are touched.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "print alerts instead of sending them")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := current.cfg
	if err := cfg.ValidateBot(); err != nil {
		return err
	}
	ctx := cmd.Context()

	checkerCfg, err := app.CheckerConfig(cfg)
	if err != nil {
		return err
	}
	deps := alarming.CheckerDeps{
		Source: app.WeatherClient(cfg.Weather, current.logger),
		Logger: current.logger,
	}

	if checkDryRun {
		deps.Cooldowns = alarming.NewMemoryCooldownStore()
		deps.Sender = printSender(cmd.OutOrStdout())
	} else {
		closeAll, err := liveDeps(ctx, &deps, checkerCfg)
		if err != nil {
			return err
		}
		defer closeAll()
	}

	report, err := alarming.NewChecker(checkerCfg, deps).Run(ctx)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report, checkerCfg.ThresholdKnots)
	return nil
}

// liveDeps connects the stores and Telegram the way the bot process does
func liveDeps(ctx context.Context, deps *alarming.CheckerDeps, checkerCfg alarming.CheckerConfig) (func(), error) {
	cfg := current.cfg

	db, err := database.Connect(ctx, cfg.Database.ConnectionString(), current.logger)
	if err != nil {
		return nil, err
	}
	redisClient, err := app.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to authorise Telegram bot: %w", err)
	}

	deps.Cooldowns = alarming.NewRedisCooldownStore(redisClient, app.CooldownTTL(checkerCfg.Cooldown))
	deps.Locales = bot.NewRedisPreferences(redisClient)
	deps.Recorder = stats.NewRecorder(db.RepositoryFactory(), nil)
	deps.Sender = notification.NewTelegramSender(api, current.logger)

	return func() {
		redisClient.Close()
		db.Close()
	}, nil
}

func printSender(w io.Writer) notification.Sender {
	return notification.SenderFunc(func(ctx context.Context, recipientID int64, text string, mode message.ParseMode) error {
		fmt.Fprintf(w, "--- to %d ---\n%s\n\n", recipientID, text)
		return nil
	})
}

func printReport(w io.Writer, r alarming.RunReport, threshold float64) {
	fmt.Fprintf(w, "run %s: %s\n", r.RunID, r.Outcome)
	if r.Snapshot != nil {
		fmt.Fprintf(w, "wind %.1f kn (threshold %.1f kn), %.1f°C\n", r.WindKnots, threshold, r.Snapshot.Temperature)
	}
	fmt.Fprintf(w, "sent: %s\n", joinIDs(r.Sent))
	fmt.Fprintf(w, "skipped: %s\n", joinIDs(r.Skipped))
	fmt.Fprintf(w, "failed: %s\n", joinIDs(r.Failed))
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// Command notification mails digests of alert events consumed from Kafka.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/queue"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.Logger(cfg)

	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("KAFKA_BROKERS is empty; nothing to consume")
	}

	logger.Info("starting notification service", "topic", cfg.Kafka.TopicAlerts, "to", cfg.SMTP.To)

	notifier := notification.NewEmailNotifier(&cfg.SMTP, logger)
	if err := notifier.TestConnection(); err != nil {
		logger.Warn("SMTP not usable, digests will be logged only", "error", err)
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "wind-alert-digest")
	defer consumer.Close()

	ctx, stop := app.SignalContext()
	defer stop()

	batcher := queue.NewDigestBatcher(consumer, notifier.SendDigest,
		cfg.SMTP.DigestBatchSize, cfg.SMTP.DigestFlushInterval, nil, logger)
	// Stop flushes the pending digest, so the batcher outlives the signal context.
	batcher.Start(context.Background())

	logger.Info("notification service is running",
		"batch_size", cfg.SMTP.DigestBatchSize,
		"flush_interval", cfg.SMTP.DigestFlushInterval)

	<-ctx.Done()

	logger.Info("shutting down gracefully")
	batcher.Stop()

	st := consumer.Stats()
	logger.Info("notification service stopped", "messages", st.Messages, "errors", st.Errors)
	return nil
}

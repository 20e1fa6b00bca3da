package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// UpdateSource is the subset of *tgbotapi.BotAPI used for long polling
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller feeds Telegram updates to a Handler
type Poller struct {
	bot     UpdateSource
	handler *Handler
	workers int
	logger  *slog.Logger
}

// NewPoller creates a poller that handles up to workers messages at once
func NewPoller(bot UpdateSource, handler *Handler, workers int, logger *slog.Logger) *Poller {
	if workers < 1 {
		workers = 1
	}
	return &Poller{bot: bot, handler: handler, workers: workers, logger: logger}
}

// Run polls until ctx is cancelled, then waits for in-flight messages
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := p.bot.GetUpdatesChan(cfg)

	var g errgroup.Group
	g.SetLimit(p.workers)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			in, ok := incomingFrom(upd)
			if !ok {
				continue
			}
			g.Go(func() error {
				if err := p.handler.Handle(ctx, in); err != nil {
					p.logger.Error("failed to handle message", "chat_id", in.ChatID, "error", err)
				}
				return nil
			})
		}
	}
}

func incomingFrom(upd tgbotapi.Update) (Incoming, bool) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return Incoming{}, false
	}
	in := Incoming{ChatID: msg.Chat.ID, Text: msg.Text}
	if msg.From != nil {
		in.UserID = msg.From.ID
	}
	return in, true
}

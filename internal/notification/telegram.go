package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smukkama/wind-alert-bot/internal/message"
)

// BotAPI is the subset of *tgbotapi.BotAPI used for sending
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender sends chat messages through the Telegram Bot API
type TelegramSender struct {
	bot    BotAPI
	logger *slog.Logger
}

// NewTelegramSender creates a sender over an authorised bot client
func NewTelegramSender(bot BotAPI, logger *slog.Logger) *TelegramSender {
	return &TelegramSender{bot: bot, logger: logger}
}

// Send delivers text to the chat. The parse mode is passed through untouched.
func (s *TelegramSender) Send(ctx context.Context, recipientID int64, text string, mode message.ParseMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(recipientID, text)
	msg.ParseMode = string(mode)

	if _, err := s.bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			s.logger.Warn("bot blocked by recipient", "recipient_id", recipientID)
			return fmt.Errorf("telegram send to %d: %w", recipientID, ErrRecipientBlocked)
		}
		return fmt.Errorf("telegram send to %d: %w", recipientID, err)
	}

	s.logger.Debug("message sent", "recipient_id", recipientID, "parse_mode", string(mode))
	return nil
}

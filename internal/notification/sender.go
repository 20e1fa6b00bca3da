// Package notification delivers rendered messages to chat recipients and
// alert digests to the administrator.
package notification

import (
	"context"
	"errors"

	"github.com/smukkama/wind-alert-bot/internal/message"
)

// ErrRecipientBlocked is returned when the recipient has blocked the bot
var ErrRecipientBlocked = errors.New("recipient blocked the bot")

// Sender delivers a rendered message to one recipient. A nil error means
// the platform accepted the message.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string, mode message.ParseMode) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, recipientID int64, text string, mode message.ParseMode) error

func (f SenderFunc) Send(ctx context.Context, recipientID int64, text string, mode message.ParseMode) error {
	return f(ctx, recipientID, text, mode)
}

package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/protocol"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBot struct {
	mock.Mock
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegramSender_PassesParseModeThrough(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "*hi*" && msg.ParseMode == "Markdown"
	})).Return(nil).Once()

	s := NewTelegramSender(bot, discardLogger())
	err := s.Send(context.Background(), 42, "*hi*", message.ParseModeMarkdown)

	require.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestTelegramSender_BlockedRecipient(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.Anything).Return(&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"})

	s := NewTelegramSender(bot, discardLogger())
	err := s.Send(context.Background(), 42, "hi", message.ParseModePlain)

	assert.ErrorIs(t, err, ErrRecipientBlocked)
}

func TestTelegramSender_WrapsOtherErrors(t *testing.T) {
	bot := &mockBot{}
	bot.On("Send", mock.Anything).Return(errors.New("timeout"))

	s := NewTelegramSender(bot, discardLogger())
	err := s.Send(context.Background(), 7, "hi", message.ParseModePlain)

	assert.ErrorContains(t, err, "telegram send to 7")
	assert.NotErrorIs(t, err, ErrRecipientBlocked)
}

func TestTelegramSender_CancelledContext(t *testing.T) {
	bot := &mockBot{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTelegramSender(bot, discardLogger()).Send(ctx, 1, "hi", message.ParseModePlain)

	assert.ErrorIs(t, err, context.Canceled)
	bot.AssertNotCalled(t, "Send", mock.Anything)
}

func newTestNotifier(cfg *config.SMTPConfig, sent *[]byte) *EmailNotifier {
	n := NewEmailNotifier(cfg, discardLogger())
	n.clock = clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = msg
		return nil
	}
	return n
}

func TestEmailNotifier_SendDigest(t *testing.T) {
	var sent []byte
	cfg := &config.SMTPConfig{Host: "smtp.test", Port: 587, Username: "u", Password: "p", From: "bot@test", To: "admin@test"}
	n := newTestNotifier(cfg, &sent)

	gust := 27.2
	events := []*protocol.AlertEvent{
		{Type: protocol.AlertTypeDelivered, RecipientID: 1, Locale: "en", WindKnots: 21.4, GustKnots: &gust, ThresholdKnots: 15},
		{Type: protocol.AlertTypeFailed, RecipientID: 2, WindKnots: 21.4, Error: "recipient blocked the bot"},
	}

	require.NoError(t, n.SendDigest(context.Background(), events))

	body := string(sent)
	assert.Contains(t, body, "Subject: 🌬️ Wind alerts: 1 delivered, 1 failed")
	assert.Contains(t, body, "chat 1 (en): 21.4 kn, gusts 27.2 kn, threshold 15.0 kn")
	assert.Contains(t, body, "chat 2: recipient blocked the bot")
	assert.Contains(t, body, "Peak wind: 21.4 kn")
}

func TestEmailNotifier_SkipsWhenUnconfigured(t *testing.T) {
	var sent []byte
	n := newTestNotifier(&config.SMTPConfig{}, &sent)

	err := n.SendDigest(context.Background(), []*protocol.AlertEvent{{Type: protocol.AlertTypeDelivered}})

	require.NoError(t, err)
	assert.Nil(t, sent)
}

func TestEmailNotifier_EmptyBatch(t *testing.T) {
	var sent []byte
	n := newTestNotifier(&config.SMTPConfig{Username: "u", Password: "p"}, &sent)

	require.NoError(t, n.SendDigest(context.Background(), nil))
	assert.Nil(t, sent)
}

package bot

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/wind-alert-bot/internal/message"
)

const (
	localeKeyPrefix = "chat_lang:"
	activeUsersKey  = "active_users"
)

// RedisPreferences stores per-chat language choices and the set of users
// who have talked to the bot. It also serves the scheduler as a locale
// resolver, so /language applies to alerts too.
type RedisPreferences struct {
	client *redis.Client
}

// NewRedisPreferences creates a preference store
func NewRedisPreferences(client *redis.Client) *RedisPreferences {
	return &RedisPreferences{client: client}
}

func localeKey(chatID int64) string {
	return fmt.Sprintf("%s%d", localeKeyPrefix, chatID)
}

// LocaleFor returns the chat's chosen locale. Lookup errors count as no choice.
func (p *RedisPreferences) LocaleFor(ctx context.Context, chatID int64) (message.Locale, bool) {
	val, err := p.client.Get(ctx, localeKey(chatID)).Result()
	if err != nil {
		return "", false
	}
	if !message.IsSupported(val) {
		return "", false
	}
	return message.ParseLocale(val), true
}

// SetLocale persists the chat's language choice
func (p *RedisPreferences) SetLocale(ctx context.Context, chatID int64, locale message.Locale) error {
	if err := p.client.Set(ctx, localeKey(chatID), string(locale), 0).Err(); err != nil {
		return fmt.Errorf("failed to save language for chat %d: %w", chatID, err)
	}
	return nil
}

// TrackActiveUser adds userID to the active set and returns the set size
func (p *RedisPreferences) TrackActiveUser(ctx context.Context, userID int64) (int64, error) {
	pipe := p.client.TxPipeline()
	pipe.SAdd(ctx, activeUsersKey, userID)
	card := pipe.SCard(ctx, activeUsersKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to track active user: %w", err)
	}
	return card.Val(), nil
}

package alarming

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCooldownTTL is how long a last-alert record is kept in Redis
const DefaultCooldownTTL = 24 * time.Hour

const cooldownKeyPrefix = "last_alert:"

// CooldownStore tracks when each recipient was last alerted
type CooldownStore interface {
	// LastAlertTime returns ok=false if the recipient was never alerted
	// or the record has expired.
	LastAlertTime(ctx context.Context, recipientID int64) (time.Time, bool, error)
	RecordAlertSent(ctx context.Context, recipientID int64, at time.Time) error
}

// InCooldown reports whether a recipient last alerted at last is still
// inside the cooldown interval d at now.
func InCooldown(last time.Time, ok bool, now time.Time, d time.Duration) bool {
	return ok && now.Before(last.Add(d))
}

// RedisCooldownStore keeps last-alert timestamps in Redis
type RedisCooldownStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCooldownStore creates a store. A non-positive ttl uses DefaultCooldownTTL.
func NewRedisCooldownStore(redisClient *redis.Client, ttl time.Duration) *RedisCooldownStore {
	if ttl <= 0 {
		ttl = DefaultCooldownTTL
	}
	return &RedisCooldownStore{redis: redisClient, ttl: ttl}
}

func cooldownKey(recipientID int64) string {
	return fmt.Sprintf("%s%d", cooldownKeyPrefix, recipientID)
}

// LastAlertTime retrieves the last alert time for a recipient
func (s *RedisCooldownStore) LastAlertTime(ctx context.Context, recipientID int64) (time.Time, bool, error) {
	data, err := s.redis.Get(ctx, cooldownKey(recipientID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last alert from Redis: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last alert %q: %w", data, err)
	}
	return at, true, nil
}

// RecordAlertSent overwrites the recipient's last alert time
func (s *RedisCooldownStore) RecordAlertSent(ctx context.Context, recipientID int64, at time.Time) error {
	value := at.UTC().Format(time.RFC3339Nano)
	if err := s.redis.Set(ctx, cooldownKey(recipientID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set last alert in Redis: %w", err)
	}
	return nil
}

// Clear removes the recipient's record so the next alert is not suppressed
func (s *RedisCooldownStore) Clear(ctx context.Context, recipientID int64) error {
	return s.redis.Del(ctx, cooldownKey(recipientID)).Err()
}

// All returns every stored last-alert time (for monitoring)
func (s *RedisCooldownStore) All(ctx context.Context) (map[int64]time.Time, error) {
	keys, err := s.redis.Keys(ctx, cooldownKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	out := make(map[int64]time.Time, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, cooldownKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		at, ok, err := s.LastAlertTime(ctx, id)
		if err != nil || !ok {
			continue
		}
		out[id] = at
	}
	return out, nil
}

// MemoryCooldownStore is a process-local CooldownStore. Records do not expire.
type MemoryCooldownStore struct {
	mu   sync.Mutex
	last map[int64]time.Time
}

// NewMemoryCooldownStore creates an empty store
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{last: make(map[int64]time.Time)}
}

func (s *MemoryCooldownStore) LastAlertTime(ctx context.Context, recipientID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.last[recipientID]
	return at, ok, nil
}

func (s *MemoryCooldownStore) RecordAlertSent(ctx context.Context, recipientID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[recipientID] = at
	return nil
}

package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore handles deduplication of email events
type IdempotencyStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore creates a new idempotency store. Deduplication records
// are kept for 24 hours.
func NewIdempotencyStore(redisClient *redis.Client, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{
		redis:  redisClient,
		ttl:    24 * time.Hour,
		logger: logger,
	}
}

func (s *IdempotencyStore) buildKey(messageID string) string {
	return fmt.Sprintf("email:sent:%s", messageID)
}

// IsProcessed checks if an email event has already been processed
func (s *IdempotencyStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	exists, err := s.redis.Exists(ctx, s.buildKey(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if message is processed: %w", err)
	}
	return exists > 0, nil
}

// MarkAsProcessed marks an email event as processed. Returns true on first
// marking, false when the event was already recorded. Uses SET NX for an
// atomic check-and-set.
func (s *IdempotencyStore) MarkAsProcessed(ctx context.Context, event EmailEvent) (bool, error) {
	metadata := EmailMetadata{
		SentAt:    time.Now(),
		Recipient: event.Recipient,
		EventType: event.EventType,
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, s.buildKey(event.MessageID), data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processed: %w", err)
	}
	if !ok {
		s.logger.Debug("duplicate email event skipped",
			"message_id", event.MessageID,
			"recipient", event.Recipient)
	}
	return ok, nil
}

// Count reports how many deduplication records are currently held.
func (s *IdempotencyStore) Count(ctx context.Context) (int64, error) {
	var cursor uint64
	var total int64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, "email:sent:*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan idempotency records: %w", err)
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

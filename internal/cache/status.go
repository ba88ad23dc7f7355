package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Transient processing states surfaced through the cache. These are not the
// durable delivery-log statuses: the cache is never authoritative and a
// missing key means "unknown", not "not delivered".
const (
	StateProcessing = "processing"
	StateDelivered  = "delivered"
	StateFailed     = "failed"
)

const (
	keyPrefix  = "notification_status:"
	defaultTTL = 24 * time.Hour
)

// StatusEntry is the ephemeral per-notification value stored in Redis.
type StatusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// StatusStore is a TTL'd key-value view of in-flight delivery state for fast
// status polling.
type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewStatusStore(client *redis.Client) (*StatusStore, error) {
	return newStatusStore(client, defaultTTL, time.Now)
}

func newStatusStore(client *redis.Client, ttl time.Duration, nowFn func() time.Time) (*StatusStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &StatusStore{
		client: client,
		ttl:    ttl,
		now:    nowFn,
	}, nil
}

// Set writes the state for a notification, overwriting any previous entry and
// refreshing the TTL.
func (s *StatusStore) Set(ctx context.Context, notificationID, state, errText string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("status store is not initialized")
	}
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("notification id is required")
	}

	entry := StatusEntry{
		Status:    state,
		UpdatedAt: s.now().UTC(),
		Error:     errText,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal status entry: %w", err)
	}

	if err := s.client.Set(ctx, Key(notificationID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write status entry: %w", err)
	}

	return nil
}

// Get reads the state for a notification. The second return value reports
// whether an entry existed; callers must treat a miss as unknown.
func (s *StatusStore) Get(ctx context.Context, notificationID string) (*StatusEntry, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, fmt.Errorf("status store is not initialized")
	}

	payload, err := s.client.Get(ctx, Key(notificationID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read status entry: %w", err)
	}

	var entry StatusEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal status entry: %w", err)
	}

	return &entry, true, nil
}

// Key returns the Redis key for a notification's status entry.
func Key(notificationID string) string {
	return keyPrefix + notificationID
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"revot.app/chat/internal/model"
)

// Invalidator drops cached transcript state for a session. The controller
// calls it after a send round trip, since the automation service appends
// rows the cache cannot see.
type Invalidator interface {
	Invalidate(ctx context.Context, sessionID int64) error
}

type CachedHistoryStore struct {
	inner  HistoryStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedHistoryStore wraps a HistoryStore with a redis read-through cache.
// Cache failures are logged and degrade to the inner store, never surfaced.
func NewCachedHistoryStore(inner HistoryStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedHistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedHistoryStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedHistoryStore) ListBySession(ctx context.Context, sessionID int64) ([]model.Message, error) {
	key := historyKey(sessionID)

	if data, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var messages []model.Message
		if err := json.Unmarshal(data, &messages); err == nil {
			return messages, nil
		}
		s.logger.WarnContext(ctx, "corrupt history cache entry, refetching", "chat_session_id", sessionID)
	} else if err != redis.Nil {
		s.logger.WarnContext(ctx, "history cache read failed", "error", err, "chat_session_id", sessionID)
	}

	messages, err := s.inner.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(messages); err == nil {
		if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "history cache write failed", "error", err, "chat_session_id", sessionID)
		}
	}

	return messages, nil
}

func (s *CachedHistoryStore) Invalidate(ctx context.Context, sessionID int64) error {
	if err := s.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidating history cache: %w", err)
	}
	return nil
}

func historyKey(sessionID int64) string {
	return fmt.Sprintf("revot:history:%d", sessionID)
}

package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsrag/models"
)

func historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

// historyRepository stores per-session conversation history in redis.
// Each store overwrites the full turn sequence and refreshes the TTL;
// append semantics are the orchestrator's job.
type historyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryRepository wraps a redis client as a session history repository.
func NewHistoryRepository(client *redis.Client, ttl time.Duration) *historyRepository {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &historyRepository{client: client, ttl: ttl}
}

func (r *historyRepository) StoreHistory(ctx context.Context, sessionID string, turns []models.ConversationTurn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("%w: marshal history: %v", models.ErrSessionStore, err)
	}
	if err := r.client.Set(ctx, historyKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSessionStore, err)
	}
	return nil
}

func (r *historyRepository) GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	val, err := r.client.Get(ctx, historyKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.ConversationTurn{}, nil
		}
		return nil, fmt.Errorf("%w: %v", models.ErrSessionStore, err)
	}
	var turns []models.ConversationTurn
	if err := json.Unmarshal([]byte(val), &turns); err != nil {
		return nil, fmt.Errorf("%w: unmarshal history: %v", models.ErrSessionStore, err)
	}
	return turns, nil
}

func (r *historyRepository) ClearHistory(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSessionStore, err)
	}
	return nil
}

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const historyTTL = 24 * time.Hour

// ErrHistoryMiss indicates no cached history exists for the user.
var ErrHistoryMiss = errors.New("conversation: history cache miss")

// HistoryCache keeps a user's recent conversation history in Redis so prompt
// assembly does not hit Postgres on every interaction. Entries expire after
// historyTTL; the memory store remains the source of truth.
type HistoryCache struct {
	redis *redis.Client
}

// NewHistoryCache creates a cache over the given Redis client.
func NewHistoryCache(client *redis.Client) *HistoryCache {
	if client == nil {
		return nil
	}
	return &HistoryCache{redis: client}
}

// Save replaces the cached history for a user.
func (c *HistoryCache) Save(ctx context.Context, userID string, history []ChatMessage) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("conversation: marshal history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(userID), data, historyTTL).Err(); err != nil {
		return fmt.Errorf("conversation: persist history: %w", err)
	}
	return nil
}

// Load returns the cached history for a user, or ErrHistoryMiss.
func (c *HistoryCache) Load(ctx context.Context, userID string) ([]ChatMessage, error) {
	data, err := c.redis.Get(ctx, historyKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrHistoryMiss
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("conversation: unmarshal history: %w", err)
	}
	return history, nil
}

// Append adds messages to the cached history, creating it if absent.
func (c *HistoryCache) Append(ctx context.Context, userID string, msgs ...ChatMessage) error {
	history, err := c.Load(ctx, userID)
	if err != nil && !errors.Is(err, ErrHistoryMiss) {
		return err
	}
	return c.Save(ctx, userID, append(history, msgs...))
}

func historyKey(userID string) string {
	return "replyflow:history:" + userID
}

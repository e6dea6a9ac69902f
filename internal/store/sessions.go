package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Session statuses.
const (
	SessionProcessing = "processing"
	SessionCompleted  = "completed"
)

// SessionMessage is one entry in a session's message log.
type SessionMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession tracks the lifecycle of one conversation thread. ChatID is
// unique per external thread: the platform conversation id for DMs, or
// "comment_<id>" for comment threads.
type ChatSession struct {
	ID          uuid.UUID
	ChatID      string
	Status      string
	Messages    []SessionMessage
	ChannelType string
	UserRole    string
}

// UpsertProcessingSession creates the session for a chat key in processing
// state, or moves the existing one back to processing. Repeated webhook
// deliveries for the same thread converge on a single row, and a reused thread
// that already completed re-enters processing for the new interaction.
func (s *Store) UpsertProcessingSession(ctx context.Context, chatID, channelType, userRole string) (*ChatSession, error) {
	query := `
		INSERT INTO chat_sessions (id, chat_id, status, messages, channel_type, user_role)
		VALUES ($1, $2, $3, '[]'::jsonb, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()
		RETURNING id, chat_id, status, messages, channel_type, user_role
	`
	return s.scanSession(s.pool.QueryRow(ctx, query, uuid.New(), chatID, SessionProcessing, channelType, userRole))
}

// GetSession fetches a session by chat key.
func (s *Store) GetSession(ctx context.Context, chatID string) (*ChatSession, error) {
	query := `
		SELECT id, chat_id, status, messages, channel_type, user_role
		FROM chat_sessions
		WHERE chat_id = $1
	`
	sess, err := s.scanSession(s.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// AppendSessionMessages appends entries to the session's message log without
// changing its status.
func (s *Store) AppendSessionMessages(ctx context.Context, chatID string, msgs []SessionMessage) error {
	return s.appendMessages(ctx, chatID, msgs, "")
}

// CompleteSession appends the final entries to the message log and transitions
// the session to completed. Called only after the reply has been generated and
// posted; a session left in processing is the failure signal for monitoring.
func (s *Store) CompleteSession(ctx context.Context, chatID string, msgs []SessionMessage) error {
	return s.appendMessages(ctx, chatID, msgs, SessionCompleted)
}

func (s *Store) appendMessages(ctx context.Context, chatID string, msgs []SessionMessage, status string) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("store: marshal session messages: %w", err)
	}

	query := `
		UPDATE chat_sessions
		SET messages = messages || $2::jsonb,
			status = COALESCE(NULLIF($3, ''), status),
			updated_at = now()
		WHERE chat_id = $1
	`
	tag, err := s.pool.Exec(ctx, query, chatID, data, status)
	if err != nil {
		return fmt.Errorf("store: append session messages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanSession(row pgx.Row) (*ChatSession, error) {
	var sess ChatSession
	var messages []byte
	if err := row.Scan(&sess.ID, &sess.ChatID, &sess.Status, &messages, &sess.ChannelType, &sess.UserRole); err != nil {
		return nil, fmt.Errorf("store: scan session: %w", err)
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &sess.Messages); err != nil {
			return nil, fmt.Errorf("store: unmarshal session messages: %w", err)
		}
	}
	return &sess, nil
}

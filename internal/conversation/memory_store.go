package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Memory message types.
const (
	MemoryTypeUser = "user"
	MemoryTypeAI   = "ai"
)

// MemoryRecord is one entry in a user's append-only conversation log.
type MemoryRecord struct {
	ID             uuid.UUID
	UserID         string
	ConversationID string
	MessageType    string
	Content        string
	Context        string
	ToolsUsed      []string
	CreatedAt      time.Time
}

// MemoryStore persists long-term per-user conversation memory to PostgreSQL.
// The log grows monotonically; retention is an external policy concern.
type MemoryStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewMemoryStore creates a memory store over the given database handle.
func NewMemoryStore(db *sql.DB) *MemoryStore {
	if db == nil {
		return nil
	}
	return &MemoryStore{
		db:     db,
		tracer: otel.Tracer("replyflow.internal.conversation.memory"),
	}
}

// Append records one message in the user's conversation log.
func (s *MemoryStore) Append(ctx context.Context, rec MemoryRecord) error {
	ctx, span := s.tracer.Start(ctx, "conversation.memory_append")
	defer span.End()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	tools, err := json.Marshal(rec.ToolsUsed)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: marshal tools used: %w", err)
	}

	query := `
		INSERT INTO user_conversations (id, user_id, conversation_id, message_type, content, context, tools_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.ConversationID, rec.MessageType, rec.Content, rec.Context, tools,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append memory: %w", err)
	}
	return nil
}

// Recent returns the user's most recent memory entries, newest first, bounded
// by limit.
func (s *MemoryStore) Recent(ctx context.Context, userID string, limit int) ([]MemoryRecord, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.memory_recent")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, conversation_id, message_type, content, COALESCE(context, ''), tools_used, created_at
		FROM user_conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load memory: %w", err)
	}
	defer rows.Close()

	var records []MemoryRecord
	for rows.Next() {
		var rec MemoryRecord
		var tools []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ConversationID, &rec.MessageType,
			&rec.Content, &rec.Context, &tools, &rec.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: scan memory row: %w", err)
		}
		if len(tools) > 0 {
			if err := json.Unmarshal(tools, &rec.ToolsUsed); err != nil {
				return nil, fmt.Errorf("conversation: unmarshal tools used: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: iterate memory rows: %w", err)
	}
	return records, nil
}

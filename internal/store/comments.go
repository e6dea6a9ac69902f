package store

import (
	"context"
	"fmt"
)

// Comment roles.
const (
	RoleFollower = "follower"
	RoleAIAgent  = "ai_agent"
	RoleAdmin    = "admin"
)

// Comment is a persisted interaction row. ID is the platform-native comment id
// and acts as the natural idempotency key against duplicate deliveries.
type Comment struct {
	ID              string
	PostID          string
	Content         string
	Role            string
	ParentCommentID string
	SourceChannel   string
}

// InsertComment inserts a comment row. Returns false without error when a row
// with the same platform id already exists (duplicate webhook delivery).
func (s *Store) InsertComment(ctx context.Context, c Comment) (bool, error) {
	query := `
		INSERT INTO comments (id, post_id, content, role, parent_comment_id, source_channel)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, c.ID, c.PostID, c.Content, c.Role, c.ParentCommentID, c.SourceChannel)
	if err != nil {
		return false, fmt.Errorf("store: insert comment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Post is a synced social post. MediaAnalysis is a cache: when non-empty it is
// preferred over recomputing the analysis.
type Post struct {
	ID            string
	Platform      string
	Content       string
	MediaURL      string
	MediaAnalysis string
}

// GetPost fetches a post by its platform-native id. Returns ErrNotFound when
// the post has not been synced locally.
func (s *Store) GetPost(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT id, platform, content, COALESCE(media_url, ''), COALESCE(media_analysis, '')
		FROM posts
		WHERE id = $1
	`
	var p Post
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Platform, &p.Content, &p.MediaURL, &p.MediaAnalysis)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get post: %w", err)
	}
	return &p, nil
}

// SetPostMediaAnalysis backfills the analysis cache on a post. Cache fill
// only; an existing non-empty analysis is never overwritten.
func (s *Store) SetPostMediaAnalysis(ctx context.Context, id, analysis string) error {
	query := `
		UPDATE posts
		SET media_analysis = $2, updated_at = now()
		WHERE id = $1 AND (media_analysis IS NULL OR media_analysis = '')
	`
	if _, err := s.pool.Exec(ctx, query, id, analysis); err != nil {
		return fmt.Errorf("store: set post media analysis: %w", err)
	}
	return nil
}

// UpsertPost inserts or refreshes a synced post row.
func (s *Store) UpsertPost(ctx context.Context, p Post) error {
	query := `
		INSERT INTO posts (id, platform, content, media_url, media_analysis)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			media_url = COALESCE(EXCLUDED.media_url, posts.media_url),
			media_analysis = COALESCE(posts.media_analysis, EXCLUDED.media_analysis),
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, p.ID, p.Platform, p.Content, p.MediaURL, p.MediaAnalysis); err != nil {
		return fmt.Errorf("store: upsert post: %w", err)
	}
	return nil
}

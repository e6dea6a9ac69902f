package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Profile is a known platform user. Admin status is an explicit flag rather
// than being inferred from the row's existence.
type Profile struct {
	PlatformUserID string
	DisplayName    string
	IsAdmin        bool
}

// GetProfile fetches a profile by platform user id, or nil when unknown.
func (s *Store) GetProfile(ctx context.Context, platformUserID string) (*Profile, error) {
	query := `
		SELECT platform_user_id, COALESCE(display_name, ''), is_admin
		FROM profiles
		WHERE platform_user_id = $1
	`
	var p Profile
	err := s.pool.QueryRow(ctx, query, platformUserID).Scan(&p.PlatformUserID, &p.DisplayName, &p.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	return &p, nil
}

// IsAdmin reports whether the platform user is a recognized administrator.
// Lookup failures degrade to false; escalation is never granted on error.
func (s *Store) IsAdmin(ctx context.Context, platformUserID string) (bool, error) {
	p, err := s.GetProfile(ctx, platformUserID)
	if err != nil {
		return false, err
	}
	return p != nil && p.IsAdmin, nil
}

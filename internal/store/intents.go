package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DetectedIntent is one append-only audit row per processed interaction.
type DetectedIntent struct {
	ID         uuid.UUID
	InputID    string
	Intents    []string
	Confidence map[string]float64
}

// InsertDetectedIntent records the classification result for an interaction.
// This is an audit trail, written regardless of whether generation succeeds.
func (s *Store) InsertDetectedIntent(ctx context.Context, rec DetectedIntent) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	confidence, err := json.Marshal(rec.Confidence)
	if err != nil {
		return fmt.Errorf("store: marshal confidence: %w", err)
	}

	query := `
		INSERT INTO detected_intents (id, input_id, intents, confidence)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, query, rec.ID, rec.InputID, rec.Intents, confidence); err != nil {
		return fmt.Errorf("store: insert detected intent: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Trigger modes.
const (
	TriggerModeKeyword = "keyword"
	TriggerModeNLP     = "nlp"
)

// PromptConfiguration is the active response configuration. Exactly one row is
// active at a time; the pipeline reads a fresh snapshot per invocation and
// never writes it.
type PromptConfiguration struct {
	BusinessName       string
	Details            string
	SystemInstructions string
	TriggerMode        string
	Keywords           []string
	NLPIntents         []string
	WebSearchEnabled   bool
	FileSearchEnabled  bool
	FileReferences     []string
	CustomTools        []CustomTool
}

// CustomTool is an operator-defined tool description exposed to the model.
type CustomTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
}

// GetActiveConfiguration returns the active prompt configuration, or nil when
// none is active. Absence is not an error: the pipeline falls back to a
// hardcoded trigger rule.
func (s *Store) GetActiveConfiguration(ctx context.Context) (*PromptConfiguration, error) {
	query := `
		SELECT business_name, details, system_instructions, trigger_mode,
			keywords, nlp_intents, web_search_enabled, file_search_enabled,
			file_references, custom_tools
		FROM prompt_configurations
		WHERE active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var cfg PromptConfiguration
	var tools []byte
	err := s.pool.QueryRow(ctx, query).Scan(
		&cfg.BusinessName, &cfg.Details, &cfg.SystemInstructions, &cfg.TriggerMode,
		&cfg.Keywords, &cfg.NLPIntents, &cfg.WebSearchEnabled, &cfg.FileSearchEnabled,
		&cfg.FileReferences, &tools,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get active configuration: %w", err)
	}
	if len(tools) > 0 {
		if err := json.Unmarshal(tools, &cfg.CustomTools); err != nil {
			return nil, fmt.Errorf("store: unmarshal custom tools: %w", err)
		}
	}
	return &cfg, nil
}

package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/replyflow/replyflow/pkg/logging"
)

// SearchKind selects which augmentation a need check gates.
type SearchKind string

const (
	SearchKindWeb  SearchKind = "web"
	SearchKindFile SearchKind = "file"
)

const searchNeedPrompt = `Answer with a single word, yes or no.

Does answering the following message require %s?

Message: %s`

var searchNeedSubjects = map[SearchKind]string{
	SearchKindWeb:  "up-to-date information from the public web (news, prices, weather, current events)",
	SearchKindFile: "looking up details from the business's own uploaded documents",
}

// searchFallbackKeywords is the conservative keyword fallback applied when the
// need classifier fails.
var searchFallbackKeywords = []string{
	"latest", "current", "recent", "news", "today", "now", "weather", "price",
}

// SearchGate decides whether a message needs search augmentation. The
// decision is a binary classification call against the completion service;
// on failure it degrades to a keyword heuristic and never blocks the reply.
type SearchGate struct {
	llm     LLMClient
	timeout time.Duration
	logger  *logging.Logger
}

// NewSearchGate creates a gate with the given per-call timeout.
func NewSearchGate(llm LLMClient, timeout time.Duration, logger *logging.Logger) *SearchGate {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SearchGate{llm: llm, timeout: timeout, logger: logger}
}

// Needs reports whether text warrants augmentation of the given kind.
func (g *SearchGate) Needs(ctx context.Context, kind SearchKind, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(searchNeedPrompt, searchNeedSubjects[kind], text)
	resp, err := g.llm.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   4,
		Temperature: 0,
	})
	if err != nil {
		g.logger.Warn("search-need classification failed, using keyword fallback",
			"kind", string(kind), "error", err)
		return matchesSearchKeyword(text)
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Text))
	return strings.HasPrefix(answer, "yes")
}

func matchesSearchKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range searchFallbackKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

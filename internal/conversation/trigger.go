package conversation

import (
	"regexp"
	"strings"

	"github.com/replyflow/replyflow/internal/store"
)

// nlpConfidenceThreshold is the minimum classifier confidence for a configured
// intent to count as detected in nlp trigger mode.
const nlpConfidenceThreshold = 0.5

// Trigger reasons, recorded for operator visibility.
const (
	ReasonDefaultRule   = "default_rule"
	ReasonAdminCommand  = "admin_command"
	ReasonKeywordMatch  = "keyword_match"
	ReasonAdminKeyword  = "admin_keyword_override"
	ReasonIntentMatch   = "intent_match"
	ReasonNoMatch       = "no_match"
	ReasonEmptyText     = "empty_text"
	ReasonNoIntentMatch = "no_intent_match"
)

var (
	// Default rule when no configuration is active: a standalone "ai" token
	// at the start or end of the message.
	defaultTriggerRe = regexp.MustCompile(`(?i)(^ai\b|\bai$)`)

	// Fixed admin-command set; admins can always summon the agent with these.
	adminCommandRe = regexp.MustCompile(`(?i)\bai\s+(summarise|summarize|analyze|explain)\b`)
)

// TriggerDecision is the outcome of trigger analysis.
type TriggerDecision struct {
	Triggered bool
	Reason    string
}

// DecideTrigger decides whether an inbound message warrants an automated
// reply. It is deterministic and side-effect-free for a given input tuple.
// intents carries the classifier output and is only consulted in nlp mode;
// pass a zero value otherwise.
func DecideTrigger(text string, isAdmin bool, cfg *store.PromptConfiguration, intents IntentResult) TriggerDecision {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TriggerDecision{Triggered: false, Reason: ReasonEmptyText}
	}

	// Admin escalation: the fixed command set always triggers, in any mode.
	if isAdmin && adminCommandRe.MatchString(trimmed) {
		return TriggerDecision{Triggered: true, Reason: ReasonAdminCommand}
	}

	if cfg == nil {
		if strings.EqualFold(trimmed, "ai") || defaultTriggerRe.MatchString(trimmed) {
			return TriggerDecision{Triggered: true, Reason: ReasonDefaultRule}
		}
		return TriggerDecision{Triggered: false, Reason: ReasonNoMatch}
	}

	keywordHit := containsAnyKeyword(trimmed, cfg.Keywords)

	switch cfg.TriggerMode {
	case store.TriggerModeKeyword:
		if keywordHit {
			return TriggerDecision{Triggered: true, Reason: ReasonKeywordMatch}
		}
	case store.TriggerModeNLP:
		if matchesConfiguredIntent(cfg.NLPIntents, intents) {
			return TriggerDecision{Triggered: true, Reason: ReasonIntentMatch}
		}
		// Admins get a permissive keyword fallback even in nlp mode.
		if isAdmin && keywordHit {
			return TriggerDecision{Triggered: true, Reason: ReasonAdminKeyword}
		}
		return TriggerDecision{Triggered: false, Reason: ReasonNoIntentMatch}
	}

	// Admin keyword override: a keyword hit from an admin triggers even when
	// the general analysis said no.
	if isAdmin && keywordHit {
		return TriggerDecision{Triggered: true, Reason: ReasonAdminKeyword}
	}

	return TriggerDecision{Triggered: false, Reason: ReasonNoMatch}
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchesConfiguredIntent(configured []string, detected IntentResult) bool {
	for _, want := range configured {
		for _, got := range detected.Intents {
			if !strings.EqualFold(want, got) {
				continue
			}
			conf, ok := detected.Confidence[got]
			if !ok || conf >= nlpConfidenceThreshold {
				return true
			}
		}
	}
	return false
}

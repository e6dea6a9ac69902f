package conversation

import (
	"testing"

	"github.com/replyflow/replyflow/internal/store"
)

func TestDecideTriggerDefaultRule(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		isAdmin bool
		want    bool
	}{
		{"ai prefix", "AI what's the weather", false, true},
		{"ai suffix", "tell me more ai", false, true},
		{"bare ai", "ai", false, true},
		{"bare AI upper", "AI", false, true},
		{"embedded ai", "fairy tale", false, false},
		{"contains but not standalone", "air quality report", false, false},
		{"plain text", "nice post!", false, false},
		{"empty", "   ", false, false},
		{"admin command without config", "ai summarize this", true, true},
		{"admin command from non-admin mid-text", "please ai summarize this thread", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideTrigger(tt.text, tt.isAdmin, nil, IntentResult{})
			if got.Triggered != tt.want {
				t.Errorf("DecideTrigger(%q, admin=%v) = %v (%s), want %v",
					tt.text, tt.isAdmin, got.Triggered, got.Reason, tt.want)
			}
		})
	}
}

func TestDecideTriggerKeywordMode(t *testing.T) {
	cfg := &store.PromptConfiguration{
		TriggerMode: store.TriggerModeKeyword,
		Keywords:    []string{"promo", "Discount"},
	}

	tests := []struct {
		name    string
		text    string
		isAdmin bool
		want    bool
		reason  string
	}{
		{"keyword hit", "is there a promo code?", false, true, ReasonKeywordMatch},
		{"keyword case-insensitive", "any DISCOUNT today?", false, true, ReasonKeywordMatch},
		{"no keyword", "ai what is this post about?", false, false, ReasonNoMatch},
		{"admin fixed command beats keyword list", "ai summarize this", true, true, ReasonAdminCommand},
		{"non-admin fixed command does not", "ai summarize this", false, false, ReasonNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideTrigger(tt.text, tt.isAdmin, cfg, IntentResult{})
			if got.Triggered != tt.want || got.Reason != tt.reason {
				t.Errorf("got (%v, %s), want (%v, %s)", got.Triggered, got.Reason, tt.want, tt.reason)
			}
		})
	}
}

func TestDecideTriggerNLPMode(t *testing.T) {
	cfg := &store.PromptConfiguration{
		TriggerMode: store.TriggerModeNLP,
		NLPIntents:  []string{"product_inquiry", "complaint"},
		Keywords:    []string{"refund"},
	}

	t.Run("configured intent detected", func(t *testing.T) {
		intents := IntentResult{
			Intents:    []string{"product_inquiry"},
			Confidence: map[string]float64{"product_inquiry": 0.9},
		}
		got := DecideTrigger("what sizes do you carry?", false, cfg, intents)
		if !got.Triggered || got.Reason != ReasonIntentMatch {
			t.Errorf("got (%v, %s)", got.Triggered, got.Reason)
		}
	})

	t.Run("intent below threshold", func(t *testing.T) {
		intents := IntentResult{
			Intents:    []string{"complaint"},
			Confidence: map[string]float64{"complaint": 0.2},
		}
		got := DecideTrigger("hmm", false, cfg, intents)
		if got.Triggered {
			t.Errorf("should not trigger below threshold, got %s", got.Reason)
		}
	})

	t.Run("unconfigured intent", func(t *testing.T) {
		intents := IntentResult{
			Intents:    []string{"greeting"},
			Confidence: map[string]float64{"greeting": 0.99},
		}
		got := DecideTrigger("hello!", false, cfg, intents)
		if got.Triggered {
			t.Errorf("should not trigger for unconfigured intent, got %s", got.Reason)
		}
	})

	t.Run("admin keyword fallback in nlp mode", func(t *testing.T) {
		got := DecideTrigger("please process my refund", true, cfg, IntentResult{})
		if !got.Triggered || got.Reason != ReasonAdminKeyword {
			t.Errorf("got (%v, %s)", got.Triggered, got.Reason)
		}
	})

	t.Run("non-admin keyword does not trigger in nlp mode", func(t *testing.T) {
		got := DecideTrigger("please process my refund", false, cfg, IntentResult{})
		if got.Triggered {
			t.Errorf("got %s", got.Reason)
		}
	})
}

// The engine must return identical output for identical input tuples.
func TestDecideTriggerDeterminism(t *testing.T) {
	cfg := &store.PromptConfiguration{
		TriggerMode: store.TriggerModeKeyword,
		Keywords:    []string{"promo"},
	}
	intents := IntentResult{Intents: []string{"x"}, Confidence: map[string]float64{"x": 0.7}}

	first := DecideTrigger("ai summarize this", true, cfg, intents)
	for i := 0; i < 100; i++ {
		got := DecideTrigger("ai summarize this", true, cfg, intents)
		if got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

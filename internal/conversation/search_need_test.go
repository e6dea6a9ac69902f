package conversation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSearchGateYes(t *testing.T) {
	llm := &stubLLM{responses: []string{"Yes"}}
	g := NewSearchGate(llm, time.Second, nil)

	if !g.Needs(context.Background(), SearchKindWeb, "what's the weather today?") {
		t.Error("expected web search need")
	}
}

func TestSearchGateNo(t *testing.T) {
	llm := &stubLLM{responses: []string{"no"}}
	g := NewSearchGate(llm, time.Second, nil)

	if g.Needs(context.Background(), SearchKindFile, "thanks!") {
		t.Error("expected no file search need")
	}
}

func TestSearchGateKeywordFallback(t *testing.T) {
	llm := &stubLLM{err: errors.New("classifier down")}
	g := NewSearchGate(llm, time.Second, nil)

	tests := []struct {
		text string
		want bool
	}{
		{"what's the latest on the launch?", true},
		{"current price please", true},
		{"any news?", true},
		{"love this product", false},
	}
	for _, tt := range tests {
		if got := g.Needs(context.Background(), SearchKindWeb, tt.text); got != tt.want {
			t.Errorf("Needs(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSearchGateEmptyText(t *testing.T) {
	llm := &stubLLM{responses: []string{"yes"}}
	g := NewSearchGate(llm, time.Second, nil)

	if g.Needs(context.Background(), SearchKindWeb, "   ") {
		t.Error("empty text should never need search")
	}
	if len(llm.requests) != 0 {
		t.Error("empty text should not reach the classifier")
	}
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow/internal/store"
	"github.com/replyflow/replyflow/pkg/logging"
)

// ApologyReply is posted when response generation fails outright. Nothing
// partial is ever posted.
const ApologyReply = "Sorry, I'm having trouble responding right now. Please try again in a little while."

// ConversationMemory is the durable per-user history the generator reads and
// the pipeline appends to after a successful reply.
type ConversationMemory interface {
	Append(ctx context.Context, rec MemoryRecord) error
	Recent(ctx context.Context, userID string, limit int) ([]MemoryRecord, error)
}

// GenerationResult is the reply text plus the augmentation tools that fed it.
type GenerationResult struct {
	Text      string
	ToolsUsed []string
}

// GeneratorOptions tunes memory and search bounds. Zero values use defaults.
type GeneratorOptions struct {
	MemoryLimit      int
	MaxSearchResults int
}

// Generator assembles the system prompt for one interaction and makes a
// single completion call. Search augmentation is gated twice: the need
// classifier must say yes and the active configuration must enable the tool.
type Generator struct {
	llm     LLMClient
	gate    *SearchGate
	memory  ConversationMemory
	history *HistoryCache
	web     WebSearcher
	files   VectorIndexer
	logger  *logging.Logger

	memoryLimit      int
	maxSearchResults int
}

// NewGenerator creates a generator. memory, history, web and files may each be
// nil; the corresponding prompt section is then skipped.
func NewGenerator(llm LLMClient, gate *SearchGate, memory ConversationMemory, history *HistoryCache, web WebSearcher, files VectorIndexer, logger *logging.Logger, opts GeneratorOptions) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	limit := opts.MemoryLimit
	if limit <= 0 {
		limit = 10
	}
	maxResults := opts.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Generator{
		llm:              llm,
		gate:             gate,
		memory:           memory,
		history:          history,
		web:              web,
		files:            files,
		logger:           logger.WithComponent("generator"),
		memoryLimit:      limit,
		maxSearchResults: maxResults,
	}
}

// Generate builds the prompt and returns the reply text. The completion call
// is tagged with a freshly generated conversation identifier so downstream
// logging or caching in the completion service cannot bleed across
// conversations.
func (g *Generator) Generate(ctx context.Context, in InboundInteraction, rc *ResolvedContext, cfg *store.PromptConfiguration, intents []string) (GenerationResult, error) {
	memory := g.loadMemory(ctx, in.SenderID)

	var contextNote, postContent string
	if rc != nil {
		contextNote = rc.ContextNote
		postContent = rc.PostContent
	}

	var toolsUsed []string

	// A direct message has no post to anchor on, so pull semantically related
	// indexed posts instead.
	var relatedPosts []string
	if postContent == "" && g.files != nil {
		results, err := g.files.SearchPosts(ctx, in.Text, g.maxSearchResults)
		if err != nil {
			g.logger.Warn("related post search failed", "error", err)
		} else if len(results) > 0 {
			relatedPosts = results
			toolsUsed = append(toolsUsed, "post_search")
		}
	}

	var webResults []string
	if cfg != nil && cfg.WebSearchEnabled && g.web != nil && g.gate.Needs(ctx, SearchKindWeb, in.Text) {
		results, err := g.web.Search(ctx, in.Text, g.maxSearchResults)
		if err != nil {
			g.logger.Warn("web search failed", "error", err)
		} else if len(results) > 0 {
			webResults = results
			toolsUsed = append(toolsUsed, "web_search")
		}
	}

	var fileResults []string
	if cfg != nil && cfg.FileSearchEnabled && len(cfg.FileReferences) > 0 && g.files != nil &&
		g.gate.Needs(ctx, SearchKindFile, in.Text) {
		results, err := g.files.SearchFiles(ctx, in.Text, cfg.FileReferences, g.maxSearchResults)
		if err != nil {
			g.logger.Warn("file search failed", "error", err)
		} else if len(results) > 0 {
			fileResults = results
			toolsUsed = append(toolsUsed, "file_search")
		}
	}

	system := BuildSystemPrompt(PromptInput{
		Config:       cfg,
		PostContent:  postContent,
		ContextNote:  contextNote,
		Memory:       memory,
		MemoryLimit:  g.memoryLimit,
		RelatedPosts: relatedPosts,
		WebResults:   webResults,
		FileResults:  fileResults,
		Intents:      intents,
	})

	resp, err := g.llm.Complete(ctx, LLMRequest{
		System:         []string{system},
		Messages:       []ChatMessage{{Role: ChatRoleUser, Content: in.Text}},
		Temperature:    0.7,
		ConversationID: uuid.NewString(),
	})
	if err != nil {
		return GenerationResult{}, fmt.Errorf("conversation: completion failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return GenerationResult{}, errors.New("conversation: completion returned empty text")
	}
	return GenerationResult{Text: text, ToolsUsed: toolsUsed}, nil
}

// Remember persists the exchange to the durable memory store and the history
// cache. Failures are logged; the reply has already been posted.
func (g *Generator) Remember(ctx context.Context, in InboundInteraction, result GenerationResult) {
	if g.memory != nil {
		userRec := MemoryRecord{
			UserID:         in.SenderID,
			ConversationID: in.ChatKey,
			MessageType:    MemoryTypeUser,
			Content:        in.Text,
			Context:        in.Channel,
		}
		if err := g.memory.Append(ctx, userRec); err != nil {
			g.logger.Warn("memory append failed", "user_id", in.SenderID, "error", err)
		}
		aiRec := MemoryRecord{
			UserID:         in.SenderID,
			ConversationID: in.ChatKey,
			MessageType:    MemoryTypeAI,
			Content:        result.Text,
			Context:        in.Channel,
			ToolsUsed:      result.ToolsUsed,
		}
		if err := g.memory.Append(ctx, aiRec); err != nil {
			g.logger.Warn("memory append failed", "user_id", in.SenderID, "error", err)
		}
	}

	if g.history != nil {
		err := g.history.Append(ctx, in.SenderID,
			ChatMessage{Role: ChatRoleUser, Content: in.Text},
			ChatMessage{Role: ChatRoleAssistant, Content: result.Text},
		)
		if err != nil {
			g.logger.Warn("history cache append failed", "user_id", in.SenderID, "error", err)
		}
	}
}

// loadMemory returns the sender's recent history, most recent first. The
// Redis cache is preferred; on a miss the durable store is read and the cache
// warmed. Any failure degrades to no memory.
func (g *Generator) loadMemory(ctx context.Context, userID string) []ChatMessage {
	if g.history != nil {
		cached, err := g.history.Load(ctx, userID)
		if err == nil {
			return reverseMessages(cached)
		}
		if !errors.Is(err, ErrHistoryMiss) {
			g.logger.Warn("history cache load failed", "user_id", userID, "error", err)
		}
	}

	if g.memory == nil {
		return nil
	}
	records, err := g.memory.Recent(ctx, userID, g.memoryLimit)
	if err != nil {
		g.logger.Warn("memory load failed", "user_id", userID, "error", err)
		return nil
	}

	// Recent is newest first; the cache stores chronological order.
	msgs := make([]ChatMessage, 0, len(records))
	for _, rec := range records {
		role := ChatRoleUser
		if rec.MessageType == MemoryTypeAI {
			role = ChatRoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: rec.Content})
	}

	if g.history != nil && len(msgs) > 0 {
		if err := g.history.Save(ctx, userID, reverseMessages(msgs)); err != nil {
			g.logger.Warn("history cache warm failed", "user_id", userID, "error", err)
		}
	}
	return msgs
}

func reverseMessages(msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

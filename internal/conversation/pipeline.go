package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/replyflow/replyflow/internal/observability/metrics"
	"github.com/replyflow/replyflow/internal/store"
	"github.com/replyflow/replyflow/pkg/logging"
)

// Pipeline runs one inbound interaction end to end: context resolution,
// trigger decision, intent routing, response generation, post-back and state
// persistence. Each invocation is independent and stateless; idempotency
// against duplicate deliveries comes from keyed writes in the data store, not
// from in-process coordination.
type Pipeline struct {
	store      DataStore
	resolver   *Resolver
	classifier *IntentClassifier
	generator  *Generator
	clients    map[string]PlatformClient
	metrics    *metrics.WebhookMetrics
	logger     *logging.Logger
}

// NewPipeline wires the pipeline. clients maps platform name to its adapter;
// wm may be nil.
func NewPipeline(ds DataStore, resolver *Resolver, classifier *IntentClassifier, generator *Generator, clients map[string]PlatformClient, wm *metrics.WebhookMetrics, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		store:      ds,
		resolver:   resolver,
		classifier: classifier,
		generator:  generator,
		clients:    clients,
		metrics:    wm,
		logger:     logger.WithComponent("pipeline"),
	}
}

// ProcessComment handles one comment sub-event. The returned error is for
// logging only; the webhook layer has already acknowledged the delivery.
func (p *Pipeline) ProcessComment(ctx context.Context, in InboundInteraction) error {
	client, ok := p.clients[in.Platform]
	if !ok {
		return fmt.Errorf("conversation: no client for platform %q", in.Platform)
	}
	if in.ChatKey == "" {
		in.ChatKey = "comment_" + in.ID
	}

	rc, err := p.resolver.Resolve(ctx, client, in)
	if err != nil {
		if errors.Is(err, ErrSelfLoop) {
			p.logger.Debug("discarding self-loop event", "comment_id", in.ID)
			return nil
		}
		return err
	}
	in.IsAdmin = rc.IsAdmin

	inserted, err := p.store.InsertComment(ctx, store.Comment{
		ID:              in.ID,
		PostID:          in.PostID,
		Content:         in.Text,
		Role:            senderRole(in.IsAdmin),
		ParentCommentID: in.ParentCommentID,
		SourceChannel:   in.Channel,
	})
	if err != nil {
		return fmt.Errorf("conversation: persist comment: %w", err)
	}
	if !inserted {
		p.logger.Info("duplicate delivery, skipping", "comment_id", in.ID)
		return nil
	}

	if _, err := p.store.UpsertProcessingSession(ctx, in.ChatKey, in.Channel, senderRole(in.IsAdmin)); err != nil {
		return fmt.Errorf("conversation: upsert session: %w", err)
	}

	reply, err := p.respond(ctx, in, rc)
	if err != nil {
		// Best-effort apology; the session stays in processing as the
		// monitoring signal for this failure.
		p.recordFailedTurn(ctx, in)
		if _, apologyErr := client.ReplyToComment(ctx, in.ID, ApologyReply); apologyErr != nil {
			p.logger.Error("apology post-back failed", "comment_id", in.ID, "error", apologyErr)
		} else {
			p.metrics.ObserveReply(in.Platform, "apology")
		}
		return err
	}
	if reply == nil {
		return p.completeSession(ctx, in, "")
	}

	replyID, err := client.ReplyToComment(ctx, in.ID, reply.Text)
	if err != nil {
		p.logger.Warn("comment reply failed, falling back to post", "comment_id", in.ID, "error", err)
		replyID, err = client.ReplyToComment(ctx, in.PostID, reply.Text)
		if err != nil {
			p.metrics.ObserveReply(in.Platform, "failed")
			return fmt.Errorf("conversation: post-back failed: %w", err)
		}
	}
	p.metrics.ObserveReply(in.Platform, "posted")

	if _, err := p.store.InsertComment(ctx, store.Comment{
		ID:              replyID,
		PostID:          in.PostID,
		Content:         reply.Text,
		Role:            store.RoleAIAgent,
		ParentCommentID: in.ID,
		SourceChannel:   in.Channel,
	}); err != nil {
		return fmt.Errorf("conversation: persist agent reply: %w", err)
	}

	p.generator.Remember(ctx, in, *reply)
	return p.completeSession(ctx, in, reply.Text)
}

// ProcessMessage handles one direct-message sub-event.
func (p *Pipeline) ProcessMessage(ctx context.Context, in InboundInteraction) error {
	client, ok := p.clients[in.Platform]
	if !ok {
		return fmt.Errorf("conversation: no client for platform %q", in.Platform)
	}
	if in.ChatKey == "" {
		in.ChatKey = in.SenderID
	}

	rc, err := p.resolver.Resolve(ctx, client, in)
	if err != nil {
		if errors.Is(err, ErrSelfLoop) {
			p.logger.Debug("discarding self-loop event", "chat_key", in.ChatKey)
			return nil
		}
		return err
	}
	in.IsAdmin = rc.IsAdmin

	if _, err := p.store.UpsertProcessingSession(ctx, in.ChatKey, in.Channel, senderRole(in.IsAdmin)); err != nil {
		return fmt.Errorf("conversation: upsert session: %w", err)
	}

	reply, err := p.respond(ctx, in, rc)
	if err != nil {
		p.recordFailedTurn(ctx, in)
		if _, apologyErr := client.SendMessage(ctx, in.SenderID, ApologyReply); apologyErr != nil {
			p.logger.Error("apology send failed", "chat_key", in.ChatKey, "error", apologyErr)
		} else {
			p.metrics.ObserveReply(in.Platform, "apology")
		}
		return err
	}
	if reply == nil {
		return p.completeSession(ctx, in, "")
	}

	if _, err := client.SendMessage(ctx, in.SenderID, reply.Text); err != nil {
		p.metrics.ObserveReply(in.Platform, "failed")
		return fmt.Errorf("conversation: message send failed: %w", err)
	}
	p.metrics.ObserveReply(in.Platform, "posted")

	p.generator.Remember(ctx, in, *reply)
	return p.completeSession(ctx, in, reply.Text)
}

// respond runs trigger analysis, intent routing and generation. A nil result
// with nil error means the interaction did not trigger a reply.
func (p *Pipeline) respond(ctx context.Context, in InboundInteraction, rc *ResolvedContext) (*GenerationResult, error) {
	cfg, err := p.store.GetActiveConfiguration(ctx)
	if err != nil {
		p.logger.Warn("configuration lookup failed, using defaults", "error", err)
		cfg = nil
	}

	// In nlp mode classification feeds the trigger decision itself, so it
	// runs first; in every other mode it runs only once triggered.
	var intents IntentResult
	nlpMode := cfg != nil && cfg.TriggerMode == store.TriggerModeNLP
	if nlpMode {
		intents, err = p.classifier.Classify(ctx, in.Text, cfg.NLPIntents)
		if err != nil {
			p.logger.Warn("intent classification failed", "input_id", in.ID, "error", err)
			intents = IntentResult{}
		}
	}

	decision := DecideTrigger(in.Text, in.IsAdmin, cfg, intents)
	p.logger.Info("trigger decision",
		"input_id", in.ID, "triggered", decision.Triggered, "reason", decision.Reason)
	if !decision.Triggered {
		return nil, nil
	}

	if !nlpMode {
		var allowed []string
		if cfg != nil {
			allowed = cfg.NLPIntents
		}
		intents, err = p.classifier.Classify(ctx, in.Text, allowed)
		if err != nil {
			p.logger.Warn("intent classification failed", "input_id", in.ID, "error", err)
			intents = IntentResult{}
		}
	}

	if err := p.store.InsertDetectedIntent(ctx, store.DetectedIntent{
		InputID:    in.ID,
		Intents:    intents.Intents,
		Confidence: intents.Confidence,
	}); err != nil {
		return nil, fmt.Errorf("conversation: record detected intents: %w", err)
	}

	result, err := p.generator.Generate(ctx, in, rc, cfg, intents.Intents)
	if err != nil {
		p.logger.Error("response generation failed",
			"input_id", in.ID, "chat_key", in.ChatKey, "error", err)
		return nil, err
	}
	return &result, nil
}

// completeSession appends the exchange to the session log and marks it
// completed. An untriggered interaction completes with the user message only.
func (p *Pipeline) completeSession(ctx context.Context, in InboundInteraction, replyText string) error {
	now := time.Now().UTC()
	msgs := []store.SessionMessage{
		{Role: ChatRoleUser, Content: in.Text, Timestamp: now},
	}
	if replyText != "" {
		msgs = append(msgs, store.SessionMessage{Role: ChatRoleAssistant, Content: replyText, Timestamp: now})
	}
	if err := p.store.CompleteSession(ctx, in.ChatKey, msgs); err != nil {
		return fmt.Errorf("conversation: complete session: %w", err)
	}
	return nil
}

// recordFailedTurn appends the user message to the session log without
// completing it. The session stays in processing, but the message that was
// being handled when generation failed is preserved for inspection.
func (p *Pipeline) recordFailedTurn(ctx context.Context, in InboundInteraction) {
	msg := store.SessionMessage{Role: ChatRoleUser, Content: in.Text, Timestamp: time.Now().UTC()}
	if err := p.store.AppendSessionMessages(ctx, in.ChatKey, []store.SessionMessage{msg}); err != nil {
		p.logger.Warn("session message append failed", "chat_key", in.ChatKey, "error", err)
	}
}

func senderRole(isAdmin bool) string {
	if isAdmin {
		return store.RoleAdmin
	}
	return store.RoleFollower
}

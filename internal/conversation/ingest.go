package conversation

import (
	"context"
	"time"

	"github.com/replyflow/replyflow/internal/channels/facebook"
	"github.com/replyflow/replyflow/internal/channels/instagram"
	"github.com/replyflow/replyflow/internal/observability/metrics"
	"github.com/replyflow/replyflow/pkg/logging"
)

// processingTimeout bounds one sub-event invocation. The webhook has already
// been acknowledged by the time processing starts.
const processingTimeout = 5 * time.Minute

// Ingestor bridges parsed webhook sub-events into pipeline invocations. Each
// sub-event gets its own context; a failure in one never affects siblings.
type Ingestor struct {
	pipeline *Pipeline
	metrics  *metrics.WebhookMetrics
	logger   *logging.Logger
}

func NewIngestor(p *Pipeline, m *metrics.WebhookMetrics, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingestor{pipeline: p, metrics: m, logger: logger.WithComponent("ingestor")}
}

// FacebookComment processes one feed comment sub-event.
func (i *Ingestor) FacebookComment(ev facebook.ParsedCommentEvent) {
	i.run(PlatformFacebook, "comment", InboundInteraction{
		ID:              ev.CommentID,
		ChatKey:         "comment_" + ev.CommentID,
		Platform:        PlatformFacebook,
		Channel:         ChannelFacebookComment,
		PostID:          ev.PostID,
		SenderID:        ev.SenderID,
		SenderName:      ev.SenderName,
		Text:            ev.Text,
		ParentCommentID: ev.ParentID,
	})
}

// FacebookMessage processes one direct-message sub-event.
func (i *Ingestor) FacebookMessage(ev facebook.ParsedMessageEvent) {
	i.run(PlatformFacebook, "message", InboundInteraction{
		ID:       ev.MessageID,
		ChatKey:  ev.SenderID,
		Platform: PlatformFacebook,
		Channel:  ChannelFacebookDM,
		SenderID: ev.SenderID,
		Text:     ev.Text,
	})
}

// InstagramComment processes one media comment sub-event.
func (i *Ingestor) InstagramComment(ev instagram.ParsedCommentEvent) {
	i.run(PlatformInstagram, "comment", InboundInteraction{
		ID:              ev.CommentID,
		ChatKey:         "comment_" + ev.CommentID,
		Platform:        PlatformInstagram,
		Channel:         ChannelInstagramComment,
		PostID:          ev.MediaID,
		SenderID:        ev.SenderID,
		SenderName:      ev.SenderName,
		Text:            ev.Text,
		ParentCommentID: ev.ParentID,
	})
}

// InstagramMessage processes one direct-message sub-event.
func (i *Ingestor) InstagramMessage(ev instagram.ParsedMessageEvent) {
	i.run(PlatformInstagram, "message", InboundInteraction{
		ID:       ev.MessageID,
		ChatKey:  ev.SenderID,
		Platform: PlatformInstagram,
		Channel:  ChannelInstagramDM,
		SenderID: ev.SenderID,
		Text:     ev.Text,
	})
}

func (i *Ingestor) run(platform, eventType string, in InboundInteraction) {
	ctx, cancel := context.WithTimeout(context.Background(), processingTimeout)
	defer cancel()

	start := time.Now()
	var err error
	if in.IsComment() {
		err = i.pipeline.ProcessComment(ctx, in)
	} else {
		err = i.pipeline.ProcessMessage(ctx, in)
	}
	i.metrics.ObserveProcessingLatency(platform, eventType, time.Since(start).Seconds())

	if err != nil {
		i.metrics.ObserveInbound(platform, eventType, "failed")
		i.logger.Error("sub-event processing failed",
			"platform", platform, "event_type", eventType, "input_id", in.ID, "error", err)
		return
	}
	i.metrics.ObserveInbound(platform, eventType, "processed")
}

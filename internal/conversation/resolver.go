package conversation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/replyflow/replyflow/internal/store"
	"github.com/replyflow/replyflow/pkg/logging"
)

// ErrSelfLoop marks an event sent by the page/account identity itself. Such
// events must never reach the trigger engine or a reply would feed back into
// another webhook delivery.
var ErrSelfLoop = errors.New("conversation: event sender is the page identity")

const vectorIndexTimeout = 10 * time.Second

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

// ResolvedContext is everything the trigger engine and prompt builder need
// about the surroundings of one inbound interaction.
type ResolvedContext struct {
	IsAdmin     bool
	PostContent string
	ContextNote string
	Thread      []ThreadComment
}

// ResolverOptions tunes thread fetching. Zero values fall back to defaults.
type ResolverOptions struct {
	// SelfIDs maps platform name to the page/account identity used for the
	// self-loop guard.
	SelfIDs map[string]string

	// SiblingFetchLimit caps concurrent reply fetches for sibling comments.
	SiblingFetchLimit int

	// SiblingFetchDelay is the pause before each sibling reply fetch so a
	// busy thread does not burst the platform rate limit.
	SiblingFetchDelay time.Duration
}

// Resolver assembles the context around an inbound interaction: sender admin
// status, post content with media analysis, and the comment thread.
type Resolver struct {
	store   DataStore
	media   MediaAnalyzer
	indexer VectorIndexer
	logger  *logging.Logger

	selfIDs      map[string]string
	siblingLimit int
	siblingDelay time.Duration
}

// NewResolver creates a resolver. media and indexer may be nil, in which case
// media analysis and vector indexing are skipped.
func NewResolver(ds DataStore, media MediaAnalyzer, indexer VectorIndexer, logger *logging.Logger, opts ResolverOptions) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	limit := opts.SiblingFetchLimit
	if limit <= 0 {
		limit = 3
	}
	delay := opts.SiblingFetchDelay
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Resolver{
		store:        ds,
		media:        media,
		indexer:      indexer,
		logger:       logger.WithComponent("resolver"),
		selfIDs:      opts.SelfIDs,
		siblingLimit: limit,
		siblingDelay: delay,
	}
}

// Resolve builds the context for one interaction. It returns ErrSelfLoop when
// the sender is the page identity and not an admin; every other upstream
// failure degrades to partial context rather than aborting.
func (r *Resolver) Resolve(ctx context.Context, client PlatformClient, in InboundInteraction) (*ResolvedContext, error) {
	isAdmin, err := r.store.IsAdmin(ctx, in.SenderID)
	if err != nil {
		r.logger.Warn("admin lookup failed", "sender_id", in.SenderID, "error", err)
		isAdmin = false
	}

	if self, ok := r.selfIDs[in.Platform]; ok && self != "" && in.SenderID == self && !isAdmin {
		return nil, ErrSelfLoop
	}

	rc := &ResolvedContext{IsAdmin: isAdmin}

	if in.PostID != "" {
		rc.PostContent = r.resolvePostContent(ctx, client, in.PostID, in.Platform)
	}

	if in.IsComment() {
		rc.Thread = r.resolveThread(ctx, client, in)
		rc.ContextNote = buildContextNote(in, rc.Thread)
	}

	return rc, nil
}

// resolvePostContent prefers the local post row and its media-analysis cache,
// runs the analyzer exactly once on a cache miss, and only falls back to the
// platform API when no local row exists.
func (r *Resolver) resolvePostContent(ctx context.Context, client PlatformClient, postID, platform string) string {
	post, err := r.store.GetPost(ctx, postID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("post lookup failed", "post_id", postID, "error", err)
			return ""
		}
		text, err := client.GetPostContent(ctx, postID)
		if err != nil {
			r.logger.Warn("platform post fetch failed", "post_id", postID, "error", err)
			return ""
		}
		// Backfill the local row so the next comment on this post skips the
		// platform round trip.
		if err := r.store.UpsertPost(ctx, store.Post{ID: postID, Platform: platform, Content: text}); err != nil {
			r.logger.Warn("post backfill failed", "post_id", postID, "error", err)
		}
		r.indexPostAsync(postID, text)
		return text
	}

	analysis := post.MediaAnalysis
	if analysis == "" && post.MediaURL != "" && r.media != nil {
		analysis = r.analyzeMedia(ctx, post)
	}

	content := post.Content
	if analysis != "" {
		if content != "" {
			content += "\n\n"
		}
		content += "Media analysis: " + analysis
	}
	r.indexPostAsync(postID, content)
	return content
}

// analyzeMedia classifies the media by extension, runs the matching analyzer,
// and fills the post row cache on success.
func (r *Resolver) analyzeMedia(ctx context.Context, post *store.Post) string {
	var (
		analysis string
		err      error
	)
	if isVideoURL(post.MediaURL) {
		analysis, err = r.media.AnalyzeVideo(ctx, post.MediaURL)
	} else {
		analysis, err = r.media.AnalyzeImage(ctx, post.MediaURL)
	}
	if err != nil {
		r.logger.Warn("media analysis failed", "post_id", post.ID, "media_url", post.MediaURL, "error", err)
		return ""
	}

	if err := r.store.SetPostMediaAnalysis(ctx, post.ID, analysis); err != nil {
		r.logger.Warn("media analysis cache fill failed", "post_id", post.ID, "error", err)
	}
	return analysis
}

// resolveThread fetches the parent comment (if any) and the sibling replies at
// the same level, then the replies under each sibling with bounded concurrency.
// Every failure degrades to a shorter thread.
func (r *Resolver) resolveThread(ctx context.Context, client PlatformClient, in InboundInteraction) []ThreadComment {
	var thread []ThreadComment

	rootID := in.ID
	if in.ParentCommentID != "" {
		rootID = in.ParentCommentID
		parent, err := client.GetComment(ctx, in.ParentCommentID)
		if err != nil {
			r.logger.Warn("parent comment fetch failed", "comment_id", in.ParentCommentID, "error", err)
		} else if parent != nil {
			thread = append(thread, *parent)
		}
	}

	siblings, err := client.GetCommentReplies(ctx, rootID)
	if err != nil {
		r.logger.Warn("sibling fetch failed", "comment_id", rootID, "error", err)
		return thread
	}

	for _, s := range siblings {
		if s.ID == in.ID {
			continue
		}
		thread = append(thread, s)
	}

	thread = append(thread, r.fetchSiblingReplies(ctx, client, siblings, in.ID)...)
	return thread
}

// fetchSiblingReplies pulls the replies under each sibling comment. Fetches
// run concurrently up to the configured limit with a small pre-request delay.
func (r *Resolver) fetchSiblingReplies(ctx context.Context, client PlatformClient, siblings []ThreadComment, skipID string) []ThreadComment {
	if len(siblings) == 0 {
		return nil
	}

	results := make([][]ThreadComment, len(siblings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.siblingLimit)

	for i, s := range siblings {
		if s.ID == skipID {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(r.siblingDelay):
			}
			replies, err := client.GetCommentReplies(gctx, s.ID)
			if err != nil {
				r.logger.Debug("sibling reply fetch failed", "comment_id", s.ID, "error", err)
				return nil
			}
			results[i] = replies
			return nil
		})
	}
	_ = g.Wait()

	var out []ThreadComment
	for _, replies := range results {
		for _, reply := range replies {
			if reply.ID == skipID {
				continue
			}
			out = append(out, reply)
		}
	}
	return out
}

// indexPostAsync hands post content to the vector-search service without
// blocking the pipeline. Failures are logged and dropped.
func (r *Resolver) indexPostAsync(postID, content string) {
	if r.indexer == nil || content == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), vectorIndexTimeout)
		defer cancel()
		if err := r.indexer.IndexPost(ctx, postID, content); err != nil {
			r.logger.Warn("vector indexing failed", "post_id", postID, "error", err)
		}
	}()
}

func buildContextNote(in InboundInteraction, thread []ThreadComment) string {
	var b strings.Builder
	if in.ParentCommentID != "" {
		fmt.Fprintf(&b, "You are replying to %s, who commented in an existing thread.", displayName(in))
	} else {
		fmt.Fprintf(&b, "You are replying to a comment by %s on the post.", displayName(in))
	}
	if len(thread) > 0 {
		b.WriteString(" Other comments in the thread:\n")
		for _, c := range thread {
			name := c.AuthorName
			if name == "" {
				name = c.AuthorID
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, c.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayName(in InboundInteraction) string {
	if in.SenderName != "" {
		return in.SenderName
	}
	return in.SenderID
}

func isVideoURL(mediaURL string) bool {
	ext := strings.ToLower(path.Ext(stripQuery(mediaURL)))
	return videoExtensions[ext]
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

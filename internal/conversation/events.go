package conversation

import (
	"context"

	"github.com/replyflow/replyflow/internal/store"
)

// Channel identifiers carried on interactions and persisted rows.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"

	ChannelFacebookComment  = "facebook_comment"
	ChannelInstagramComment = "instagram_comment"
	ChannelFacebookDM       = "facebook_dm"
	ChannelInstagramDM      = "instagram_dm"
)

// InboundInteraction is the normalized record derived from one webhook
// sub-event. Created per event, consumed synchronously, never mutated.
type InboundInteraction struct {
	ID              string
	ChatKey         string
	Platform        string
	Channel         string
	PostID          string
	SenderID        string
	SenderName      string
	Text            string
	IsAdmin         bool
	ParentCommentID string
}

// IsComment reports whether the interaction originated from a post comment.
func (in InboundInteraction) IsComment() bool {
	return in.Channel == ChannelFacebookComment || in.Channel == ChannelInstagramComment
}

// ThreadComment is a platform-agnostic view of a comment in a thread.
type ThreadComment struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorName string
	ParentID   string
}

// PlatformClient is the per-platform Graph API capability the pipeline needs.
type PlatformClient interface {
	GetPostContent(ctx context.Context, postID string) (string, error)
	GetComment(ctx context.Context, commentID string) (*ThreadComment, error)
	GetCommentReplies(ctx context.Context, commentID string) ([]ThreadComment, error)
	ReplyToComment(ctx context.Context, commentID, text string) (string, error)
	SendMessage(ctx context.Context, recipientID, text string) (string, error)
}

// DataStore is the slice of the relational store the pipeline consumes.
type DataStore interface {
	GetPost(ctx context.Context, id string) (*store.Post, error)
	UpsertPost(ctx context.Context, p store.Post) error
	SetPostMediaAnalysis(ctx context.Context, id, analysis string) error
	InsertComment(ctx context.Context, c store.Comment) (bool, error)
	UpsertProcessingSession(ctx context.Context, chatID, channelType, userRole string) (*store.ChatSession, error)
	AppendSessionMessages(ctx context.Context, chatID string, msgs []store.SessionMessage) error
	CompleteSession(ctx context.Context, chatID string, msgs []store.SessionMessage) error
	GetActiveConfiguration(ctx context.Context) (*store.PromptConfiguration, error)
	InsertDetectedIntent(ctx context.Context, rec store.DetectedIntent) error
	IsAdmin(ctx context.Context, platformUserID string) (bool, error)
}

// MediaAnalyzer analyzes post media when the analysis cache is cold.
type MediaAnalyzer interface {
	AnalyzeImage(ctx context.Context, mediaURL string) (string, error)
	AnalyzeVideo(ctx context.Context, mediaURL string) (string, error)
}

// VectorIndexer is the vector-search service capability: best-effort indexing
// of post content plus semantic lookup over indexed posts and uploaded file
// references.
type VectorIndexer interface {
	IndexPost(ctx context.Context, postID, content string) error
	SearchPosts(ctx context.Context, query string, topK int) ([]string, error)
	SearchFiles(ctx context.Context, query string, fileRefs []string, topK int) ([]string, error)
}

// WebSearcher is the web-search service capability.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

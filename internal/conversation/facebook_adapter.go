package conversation

import (
	"context"

	"github.com/replyflow/replyflow/internal/channels/facebook"
)

// FacebookAdapter exposes the Facebook Graph client as a PlatformClient.
type FacebookAdapter struct {
	client *facebook.Client
}

func NewFacebookAdapter(client *facebook.Client) *FacebookAdapter {
	return &FacebookAdapter{client: client}
}

func (a *FacebookAdapter) GetPostContent(ctx context.Context, postID string) (string, error) {
	post, err := a.client.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	return post.Message, nil
}

func (a *FacebookAdapter) GetComment(ctx context.Context, commentID string) (*ThreadComment, error) {
	c, err := a.client.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	tc := &ThreadComment{
		ID:         c.ID,
		Text:       c.Message,
		AuthorID:   c.From.ID,
		AuthorName: c.From.Name,
	}
	if c.Parent != nil {
		tc.ParentID = c.Parent.ID
	}
	return tc, nil
}

func (a *FacebookAdapter) GetCommentReplies(ctx context.Context, commentID string) ([]ThreadComment, error) {
	replies, err := a.client.GetCommentReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadComment, 0, len(replies))
	for _, c := range replies {
		tc := ThreadComment{
			ID:         c.ID,
			Text:       c.Message,
			AuthorID:   c.From.ID,
			AuthorName: c.From.Name,
		}
		if c.Parent != nil {
			tc.ParentID = c.Parent.ID
		}
		out = append(out, tc)
	}
	return out, nil
}

func (a *FacebookAdapter) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	return a.client.ReplyToComment(ctx, commentID, text)
}

func (a *FacebookAdapter) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	return a.client.SendMessage(ctx, recipientID, text)
}

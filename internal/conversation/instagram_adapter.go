package conversation

import (
	"context"

	"github.com/replyflow/replyflow/internal/channels/instagram"
)

// InstagramAdapter exposes the Instagram Graph client as a PlatformClient.
// On Instagram the "post" is a media object whose caption serves as the post
// text.
type InstagramAdapter struct {
	client *instagram.Client
}

func NewInstagramAdapter(client *instagram.Client) *InstagramAdapter {
	return &InstagramAdapter{client: client}
}

func (a *InstagramAdapter) GetPostContent(ctx context.Context, postID string) (string, error) {
	media, err := a.client.GetMedia(ctx, postID)
	if err != nil {
		return "", err
	}
	return media.Caption, nil
}

func (a *InstagramAdapter) GetComment(ctx context.Context, commentID string) (*ThreadComment, error) {
	c, err := a.client.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return &ThreadComment{
		ID:         c.ID,
		Text:       c.Text,
		AuthorID:   c.From.ID,
		AuthorName: c.From.Username,
	}, nil
}

func (a *InstagramAdapter) GetCommentReplies(ctx context.Context, commentID string) ([]ThreadComment, error) {
	replies, err := a.client.GetCommentReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadComment, 0, len(replies))
	for _, c := range replies {
		out = append(out, ThreadComment{
			ID:         c.ID,
			Text:       c.Text,
			AuthorID:   c.From.ID,
			AuthorName: c.From.Username,
		})
	}
	return out, nil
}

func (a *InstagramAdapter) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	return a.client.ReplyToComment(ctx, commentID, text)
}

func (a *InstagramAdapter) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	return a.client.SendMessage(ctx, recipientID, text)
}

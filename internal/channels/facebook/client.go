package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/replyflow/replyflow/pkg/retry"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second
)

// Client wraps the Facebook Graph API endpoints used by the response pipeline.
type Client struct {
	pageAccessToken string
	graphAPIBase    string
	httpClient      *http.Client
	policy          retry.Policy
}

// NewClient creates a new Graph API client.
func NewClient(pageAccessToken string) *Client {
	return &Client{
		pageAccessToken: pageAccessToken,
		graphAPIBase:    defaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
		policy:          retry.DefaultPolicy,
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = strings.TrimRight(base, "/")
}

// SetRetryPolicy overrides the outbound retry policy.
func (c *Client) SetRetryPolicy(p retry.Policy) {
	c.policy = p
}

// GetPost fetches the text content of a post.
func (c *Client) GetPost(ctx context.Context, postID string) (*PostData, error) {
	q := url.Values{"fields": {"message"}}
	data, err := c.invoke(ctx, http.MethodGet, "/"+postID, q, nil)
	if err != nil {
		return nil, err
	}
	var post PostData
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("facebook: unmarshal post: %w", err)
	}
	return &post, nil
}

// GetComment fetches a comment with its message, author and parent reference.
func (c *Client) GetComment(ctx context.Context, commentID string) (*CommentData, error) {
	q := url.Values{"fields": {"message,from,parent"}}
	data, err := c.invoke(ctx, http.MethodGet, "/"+commentID, q, nil)
	if err != nil {
		return nil, err
	}
	var comment CommentData
	if err := json.Unmarshal(data, &comment); err != nil {
		return nil, fmt.Errorf("facebook: unmarshal comment: %w", err)
	}
	return &comment, nil
}

// GetCommentReplies fetches the direct replies of a comment (or of a post,
// when given a post id).
func (c *Client) GetCommentReplies(ctx context.Context, commentID string) ([]CommentData, error) {
	q := url.Values{"fields": {"message,from,parent"}}
	data, err := c.invoke(ctx, http.MethodGet, "/"+commentID+"/comments", q, nil)
	if err != nil {
		return nil, err
	}
	var list commentList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("facebook: unmarshal replies: %w", err)
	}
	return list.Data, nil
}

// ReplyToComment publishes a reply under the given comment (or post) and
// returns the platform-assigned id of the new comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return "", fmt.Errorf("facebook: marshal reply: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/"+commentID+"/comments", nil, payload)
	if err != nil {
		return "", err
	}
	var resp publishResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("facebook: unmarshal reply response: %w", err)
	}
	return resp.ID, nil
}

// SendMessage sends a direct message to the given user and returns the
// platform-assigned message id.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	})
	if err != nil {
		return "", fmt.Errorf("facebook: marshal message: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/me/messages", nil, payload)
	if err != nil {
		return "", err
	}
	var resp sendMessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("facebook: unmarshal send response: %w", err)
	}
	return resp.MessageID, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.pageAccessToken)
	fullURL := c.graphAPIBase + path + "?" + query.Encode()

	var data []byte
	err := c.policy.Do(ctx, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return retry.Permanent(fmt.Errorf("facebook: build request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("facebook: http error: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("facebook: read response: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			data = respBody
			return nil
		}

		apiErr := decodeGraphError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apiErr
		}
		return retry.Permanent(apiErr)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func decodeGraphError(status int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("facebook: API error %d (%s): %s", envelope.Error.Code, envelope.Error.Type, envelope.Error.Message)
	}
	return fmt.Errorf("facebook: unexpected status %d: %s", status, string(body))
}

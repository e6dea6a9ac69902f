// Package media is the HTTP client for the media-analysis sidecar service,
// which describes images and videos attached to posts. Results are cached on
// the post row by the caller; this client is only hit on a cache miss.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/replyflow/replyflow/pkg/retry"
)

// Client calls the media-analysis service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

// New creates a media-analysis client. Video analysis is slow, so the HTTP
// timeout is generous.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		policy:     retry.DefaultPolicy,
	}
}

// SetRetryPolicy overrides the outbound retry policy.
func (c *Client) SetRetryPolicy(p retry.Policy) {
	c.policy = p
}

type analyzeRequest struct {
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
	Error    string `json:"error"`
}

// AnalyzeImage returns a text description of the image at mediaURL.
func (c *Client) AnalyzeImage(ctx context.Context, mediaURL string) (string, error) {
	return c.analyze(ctx, mediaURL, "image")
}

// AnalyzeVideo returns a text description of the video at mediaURL.
func (c *Client) AnalyzeVideo(ctx context.Context, mediaURL string) (string, error) {
	return c.analyze(ctx, mediaURL, "video")
}

func (c *Client) analyze(ctx context.Context, mediaURL, mediaType string) (string, error) {
	payload, err := json.Marshal(analyzeRequest{MediaURL: mediaURL, MediaType: mediaType})
	if err != nil {
		return "", fmt.Errorf("media: marshal request: %w", err)
	}

	var out analyzeResponse
	err = c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("media: analyze %s returned status %d", mediaType, resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return retry.Permanent(fmt.Errorf("media: unmarshal response: %w", err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("media: analyze %s failed: %s", mediaType, out.Error)
	}
	return out.Analysis, nil
}

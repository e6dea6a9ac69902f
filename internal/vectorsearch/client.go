// Package vectorsearch is the HTTP client for the vector-search sidecar
// service. The service exposes a single action-dispatch endpoint; indexing is
// best-effort and queries are bounded by topK.
package vectorsearch

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

const defaultTopK = 3

// Client calls the vector-search service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

// New creates a vector-search client for the given endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		policy:     retry.DefaultPolicy,
	}
}

// SetRetryPolicy overrides the outbound retry policy.
func (c *Client) SetRetryPolicy(p retry.Policy) {
	c.policy = p
}

// SetTimeout overrides the per-request HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

type actionRequest struct {
	Action         string   `json:"action"`
	PostID         string   `json:"post_id,omitempty"`
	Content        string   `json:"content,omitempty"`
	Query          string   `json:"query,omitempty"`
	FileReferences []string `json:"file_references,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

type actionResponse struct {
	Results []string `json:"results"`
	Error   string   `json:"error"`
}

// IndexPost stores post content for later semantic lookup.
func (c *Client) IndexPost(ctx context.Context, postID, content string) error {
	_, err := c.invoke(ctx, actionRequest{Action: "index_post", PostID: postID, Content: content})
	return err
}

// SearchPosts returns post snippets semantically close to the query.
func (c *Client) SearchPosts(ctx context.Context, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	resp, err := c.invoke(ctx, actionRequest{Action: "search_posts", Query: query, TopK: topK})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// IndexFiles registers uploaded file references for semantic search.
func (c *Client) IndexFiles(ctx context.Context, fileRefs []string) error {
	_, err := c.invoke(ctx, actionRequest{Action: "index_files", FileReferences: fileRefs})
	return err
}

// SearchFiles returns excerpts from the given files matching the query.
func (c *Client) SearchFiles(ctx context.Context, query string, fileRefs []string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	resp, err := c.invoke(ctx, actionRequest{
		Action:         "search",
		Query:          query,
		FileReferences: fileRefs,
		TopK:           topK,
	})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) invoke(ctx context.Context, reqBody actionRequest) (*actionResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("vectorsearch: marshal request: %w", err)
	}

	var out actionResponse
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
			err := fmt.Errorf("vectorsearch: %s returned status %d", reqBody.Action, resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return retry.Permanent(fmt.Errorf("vectorsearch: unmarshal response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("vectorsearch: %s failed: %s", reqBody.Action, out.Error)
	}
	return &out, nil
}

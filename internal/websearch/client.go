// Package websearch is the HTTP client for the web-search sidecar service,
// used to augment replies that need current information.
package websearch

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

const defaultMaxResults = 3

// Client calls the web-search service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

// New creates a web-search client for the given endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
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

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Search returns formatted result snippets for the query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	payload, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("websearch: marshal request: %w", err)
	}

	var out searchResponse
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
			err := fmt.Errorf("websearch: search returned status %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return retry.Permanent(fmt.Errorf("websearch: unmarshal response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snippets := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Snippet == "" {
			continue
		}
		if r.Title != "" {
			snippets = append(snippets, r.Title+": "+r.Snippet)
		} else {
			snippets = append(snippets, r.Snippet)
		}
	}
	return snippets, nil
}

package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

func webhookEvent(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	client := &http.Client{Timeout: time.Second}

	resp, err := handle(context.Background(), cfg, client, webhookEvent(http.MethodGet, "/health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "ok" {
		t.Fatalf("status = %d, body = %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleRejectsUnknownPath(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	client := &http.Client{Timeout: time.Second}

	resp, err := handle(context.Background(), cfg, client, webhookEvent(http.MethodPost, "/webhooks/unknown", "{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHandleRejectsUnsupportedMethod(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	client := &http.Client{Timeout: time.Second}

	resp, err := handle(context.Background(), cfg, client, webhookEvent(http.MethodDelete, "/webhooks/facebook", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestHandleForwardsVerification(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("hub.challenge") != "12345" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		io.WriteString(w, "12345")
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	client := &http.Client{Timeout: time.Second}

	evt := webhookEvent(http.MethodGet, "/webhooks/facebook", "")
	evt.RawQueryString = "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=12345"

	resp, err := handle(context.Background(), cfg, client, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "12345" {
		t.Fatalf("status = %d, body = %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleForwardsSignedPost(t *testing.T) {
	payload := `{"object":"page","entry":[]}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Hub-Signature-256"); got != "sha256=abc" {
			t.Errorf("signature header = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != payload {
			t.Errorf("body = %q", body)
		}
		io.WriteString(w, "OK")
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	client := &http.Client{Timeout: time.Second}

	evt := webhookEvent(http.MethodPost, "/webhooks/instagram",
		base64.StdEncoding.EncodeToString([]byte(payload)))
	evt.IsBase64Encoded = true
	evt.Headers = map[string]string{"X-Hub-Signature-256": "sha256=abc"}

	resp, err := handle(context.Background(), cfg, client, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "OK" {
		t.Fatalf("status = %d, body = %q", resp.StatusCode, resp.Body)
	}
}

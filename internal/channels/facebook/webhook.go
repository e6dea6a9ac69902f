package facebook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookHandler handles Facebook webhook verification and inbound events.
// Callbacks are invoked after the 200 acknowledgement is written, so a failure
// processing one sub-event never affects its siblings or the response.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onComment   func(evt ParsedCommentEvent)
	onMessage   func(evt ParsedMessageEvent)
}

// NewWebhookHandler creates a new webhook handler. onComment is called for
// each feed comment, onMessage for each direct message.
func NewWebhookHandler(verifyToken, appSecret string, onComment func(ParsedCommentEvent), onMessage func(ParsedMessageEvent)) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onComment:   onComment,
		onMessage:   onMessage,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events (comments and direct messages).
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !VerifySignature(h.appSecret, body, signature) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Meta retries aggressively on non-200, so acknowledge as soon as the
	// payload parses. Sub-events are dispatched on their own goroutines; the
	// handler must return for the server to flush the response, and downstream
	// failures are per-event concerns.
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")

	comments, messages := ParseWebhookEvent(event)
	for _, c := range comments {
		if h.onComment != nil {
			go h.onComment(c)
		}
	}
	for _, m := range messages {
		if h.onMessage != nil {
			go h.onMessage(m)
		}
	}
}

// ParseWebhookEvent extracts comment and message events from a webhook payload.
// Entries that are not feed comments or text messages are skipped.
func ParseWebhookEvent(event WebhookEvent) ([]ParsedCommentEvent, []ParsedMessageEvent) {
	var comments []ParsedCommentEvent
	var messages []ParsedMessageEvent

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil || m.Message.Echo {
				continue
			}
			messages = append(messages, ParsedMessageEvent{
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				MessageID:   m.Message.MID,
				Text:        m.Message.Text,
				Timestamp:   time.UnixMilli(m.Timestamp),
			})
		}

		for _, c := range entry.Changes {
			if c.Field != "feed" || c.Value.Item != "comment" {
				continue
			}
			if c.Value.Verb != "" && c.Value.Verb != "add" {
				continue
			}
			comments = append(comments, ParsedCommentEvent{
				CommentID:  c.Value.CommentID,
				PostID:     c.Value.PostID,
				ParentID:   c.Value.ParentID,
				SenderID:   c.Value.From.ID,
				SenderName: c.Value.From.Name,
				Text:       c.Value.Message,
				Timestamp:  time.Unix(c.Value.CreatedTime, 0),
			})
		}
	}

	return comments, messages
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if len(signature) <= len(prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}

package instagram

import "time"

// WebhookEvent is the top-level structure received from Meta's webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single entry in the webhook payload. Direct messages
// arrive under Messaging; comment activity arrives under Changes with
// field == "comments".
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
	Changes   []Change    `json:"changes"`
}

// Messaging represents a single direct-message event.
type Messaging struct {
	Sender    Principal `json:"sender"`
	Recipient Principal `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
}

// Principal identifies a messaging participant.
type Principal struct {
	ID string `json:"id"`
}

// Message contains the direct-message content.
type Message struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
	Echo bool   `json:"is_echo"`
}

// Change represents a comment change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries comment details for a change notification.
type ChangeValue struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	From     From   `json:"from"`
	Media    Media  `json:"media"`
	ParentID string `json:"parent_id"`
}

// From identifies the comment author.
type From struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Media identifies the media the comment was left on.
type Media struct {
	ID string `json:"id"`
}

// ParsedMessageEvent is the normalized result of parsing a messaging entry.
type ParsedMessageEvent struct {
	SenderID    string
	RecipientID string
	MessageID   string
	Text        string
	Timestamp   time.Time
}

// ParsedCommentEvent is the normalized result of parsing a comment change.
type ParsedCommentEvent struct {
	CommentID  string
	MediaID    string
	ParentID   string
	SenderID   string
	SenderName string
	Text       string
}

// MediaData is a Graph API media fetch result.
type MediaData struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
}

// CommentData is a Graph API comment fetch result.
type CommentData struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From From   `json:"from"`
}

type commentList struct {
	Data []CommentData `json:"data"`
}

type publishResponse struct {
	ID string `json:"id"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// GraphError is an error payload returned by the Graph API.
type GraphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

type errorEnvelope struct {
	Error *GraphError `json:"error"`
}

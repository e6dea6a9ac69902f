package facebook

import "time"

// WebhookEvent is the top-level structure received from Meta's webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single entry in the webhook payload. Direct messages
// arrive under Messaging; page feed activity (comments) arrives under Changes.
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

// Change represents a page feed change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the feed item details for a change notification.
type ChangeValue struct {
	Item        string `json:"item"`
	Verb        string `json:"verb"`
	CommentID   string `json:"comment_id"`
	PostID      string `json:"post_id"`
	ParentID    string `json:"parent_id"`
	Message     string `json:"message"`
	From        From   `json:"from"`
	CreatedTime int64  `json:"created_time"`
}

// From identifies the author of a feed item.
type From struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParsedMessageEvent is the normalized result of parsing a messaging entry.
type ParsedMessageEvent struct {
	SenderID    string
	RecipientID string
	MessageID   string
	Text        string
	Timestamp   time.Time
}

// ParsedCommentEvent is the normalized result of parsing a feed comment entry.
type ParsedCommentEvent struct {
	CommentID  string
	PostID     string
	ParentID   string
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
}

// PostData is a Graph API post fetch result.
type PostData struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// CommentData is a Graph API comment fetch result.
type CommentData struct {
	ID      string  `json:"id"`
	Message string  `json:"message"`
	From    From    `json:"from"`
	Parent  *Parent `json:"parent,omitempty"`
}

// Parent identifies a comment's parent comment.
type Parent struct {
	ID string `json:"id"`
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
